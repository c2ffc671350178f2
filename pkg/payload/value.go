package payload

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/vango-dev/filebridge/pkg/upload"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindSequence
	KindFile
)

var kindNames = [...]string{
	KindNull:     "null",
	KindString:   "string",
	KindNumber:   "number",
	KindBool:     "bool",
	KindMap:      "map",
	KindSequence: "sequence",
	KindFile:     "file",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a node of an operation payload. The zero Value is Null.
//
// Numbers keep their JSON literal text, so a payload that came in as JSON
// goes back out byte for byte.
type Value struct {
	kind Kind
	text string // string contents or number literal
	b    bool
	m    map[string]Value
	seq  []Value
	file *upload.File
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number returns a number value from its JSON literal.
func Number(n json.Number) Value { return Value{kind: KindNumber, text: string(n)} }

// Int returns a number value.
func Int(i int64) Value { return Value{kind: KindNumber, text: strconv.FormatInt(i, 10)} }

// Float returns a number value.
func Float(f float64) Value {
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map returns a map value. A nil map is treated as empty.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// Sequence returns an ordered sequence value.
func Sequence(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, seq: items}
}

// File returns a file leaf. A nil handle yields Null.
func File(f *upload.File) Value {
	if f == nil {
		return Null()
	}
	return Value{kind: KindFile, file: f}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string contents, or "" if v is not a string.
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}
	return v.text
}

// Num returns the number literal, or "" if v is not a number.
func (v Value) Num() json.Number {
	if v.kind != KindNumber {
		return ""
	}
	return json.Number(v.text)
}

// Bool returns the boolean, or false if v is not a bool.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Map returns the entries of a map value, or nil.
func (v Value) Map() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Seq returns the items of a sequence value, or nil.
func (v Value) Seq() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// File returns the file handle of a file leaf, or nil.
func (v Value) File() *upload.File {
	if v.kind != KindFile {
		return nil
	}
	return v.file
}

// Get returns the entry for key when v is a map.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	child, ok := v.m[key]
	return child, ok
}

// Keys returns the sorted keys of a map value.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports structural equality. Map keys are compared without regard
// to order, sequences in order, and file leaves by handle identity.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindNumber:
		return v.text == other.text
	case KindBool:
		return v.b == other.b
	case KindFile:
		return v.file == other.file
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, child := range v.m {
			o, ok := other.m[k]
			if !ok || !child.Equal(o) {
				return false
			}
		}
		return true
	case KindSequence:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Files returns every file handle reachable from v, in key order.
func (v Value) Files() []*upload.File {
	var out []*upload.File
	v.collectFiles(&out)
	return out
}

// HasFiles reports whether any leaf of v is a file.
func (v Value) HasFiles() bool {
	switch v.kind {
	case KindFile:
		return true
	case KindMap:
		for _, child := range v.m {
			if child.HasFiles() {
				return true
			}
		}
	case KindSequence:
		for _, child := range v.seq {
			if child.HasFiles() {
				return true
			}
		}
	}
	return false
}

func (v Value) collectFiles(out *[]*upload.File) {
	switch v.kind {
	case KindFile:
		*out = append(*out, v.file)
	case KindMap:
		for _, k := range v.Keys() {
			v.m[k].collectFiles(out)
		}
	case KindSequence:
		for _, child := range v.seq {
			child.collectFiles(out)
		}
	}
}
