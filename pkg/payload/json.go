package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/vango-dev/filebridge/pkg/upload"
)

// FromJSON parses a JSON document into a Value. Numbers keep their literal
// text.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("payload: trailing data after JSON value")
	}
	return FromAny(raw)
}

// FromAny converts a Go value built from encoding/json types (map[string]any,
// []any, string, json.Number, float64, bool, nil) plus *upload.File leaves
// into a Value. Integer and float Go types are accepted for convenience.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *upload.File:
		return File(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, child := range t {
			cv, err := FromAny(child)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = cv
		}
		return Map(m), nil
	case map[string]Value:
		return Map(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, child := range t {
			cv, err := FromAny(child)
			if err != nil {
				return Value{}, fmt.Errorf("%d: %w", i, err)
			}
			items[i] = cv
		}
		return Sequence(items...), nil
	case []Value:
		return Sequence(t...), nil
	case []*upload.File:
		items := make([]Value, len(t))
		for i, f := range t {
			items[i] = File(f)
		}
		return Sequence(items...), nil
	}
	return Value{}, fmt.Errorf("payload: unsupported type %T", x)
}

// ToAny converts v back into plain Go values: map[string]any, []any,
// string, json.Number, bool, nil and *upload.File.
func (v Value) ToAny() any {
	switch v.kind {
	case KindString:
		return v.text
	case KindNumber:
		return json.Number(v.text)
	case KindBool:
		return v.b
	case KindFile:
		return v.file
	case KindMap:
		m := make(map[string]any, len(v.m))
		for k, child := range v.m {
			m[k] = child.ToAny()
		}
		return m
	case KindSequence:
		items := make([]any, len(v.seq))
		for i, child := range v.seq {
			items[i] = child.ToAny()
		}
		return items
	}
	return nil
}

// fileJSON is how a file leaf renders in JSON. The stream itself never
// appears in JSON.
type fileJSON struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

// MarshalJSON implements json.Marshaler. Map keys are written in sorted
// order and HTML characters are not escaped.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.text)
	case KindString:
		return writeJSONString(buf, v.text)
	case KindFile:
		data, err := json.Marshal(fileJSON{
			Filename:    v.file.Filename,
			ContentType: v.file.ContentType,
			Size:        v.file.Size,
		})
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := v.m[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindSequence:
		buf.WriteByte('[')
		for i, child := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := child.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("payload: cannot marshal %s", v.kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder.Encode terminates with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
