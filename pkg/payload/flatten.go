package payload

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vango-dev/filebridge/pkg/fieldpath"
	"github.com/vango-dev/filebridge/pkg/upload"
)

// ErrUnnamedLeaf is returned when Flatten is asked to emit a leaf at the
// empty path. Every multipart part needs a field name.
var ErrUnnamedLeaf = errors.New("payload: leaf value at empty path")

// Field is one (path, value) pair of a flattened payload. File is set for
// file leaves; every other leaf is carried as Text, the JSON encoding of
// the leaf.
type Field struct {
	Path fieldpath.Path
	Text string
	File *upload.File
}

// IsFile reports whether the field carries a file handle.
func (f Field) IsFile() bool {
	return f.File != nil
}

// Flatten walks v and returns one Field per leaf, with paths rooted at base.
//
// Non-file leaves are emitted as their JSON text ("hi" becomes `"hi"`, 3
// stays `3`), so the receiving side can recover the exact scalar. Empty maps
// and sequences are emitted as `{}` and `[]` leaves so they are not lost.
// Map keys are visited in sorted order, but the order of the result carries
// no meaning.
func Flatten(v Value, base fieldpath.Path) ([]Field, error) {
	var fields []Field
	if err := flatten(v, base, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func flatten(v Value, path fieldpath.Path, out *[]Field) error {
	switch v.kind {
	case KindMap:
		if len(v.m) == 0 {
			if len(path) == 0 {
				return nil
			}
			return emitText(path, "{}", out)
		}
		for _, k := range v.Keys() {
			if err := flatten(v.m[k], path.AppendKey(k), out); err != nil {
				return err
			}
		}
		return nil
	case KindSequence:
		if len(v.seq) == 0 {
			if len(path) == 0 {
				return nil
			}
			return emitText(path, "[]", out)
		}
		for i, child := range v.seq {
			if err := flatten(child, path.AppendIndex(i), out); err != nil {
				return err
			}
		}
		return nil
	case KindFile:
		if len(path) == 0 {
			return ErrUnnamedLeaf
		}
		if _, err := fieldpath.Encode(path); err != nil {
			return err
		}
		*out = append(*out, Field{Path: path, File: v.file})
		return nil
	}

	if len(path) == 0 {
		return ErrUnnamedLeaf
	}
	text, err := leafText(v)
	if err != nil {
		return err
	}
	return emitText(path, text, out)
}

func emitText(path fieldpath.Path, text string, out *[]Field) error {
	if _, err := fieldpath.Encode(path); err != nil {
		return err
	}
	*out = append(*out, Field{Path: path, Text: text})
	return nil
}

func leafText(v Value) (string, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return "", fmt.Errorf("payload: encode leaf: %w", err)
	}
	return buf.String(), nil
}

// Parts converts flattened fields to multipart parts by encoding each path
// as a field name.
func Parts(fields []Field) ([]upload.Field, error) {
	parts := make([]upload.Field, 0, len(fields))
	for _, f := range fields {
		name, err := fieldpath.Encode(f.Path)
		if err != nil {
			return nil, err
		}
		parts = append(parts, upload.Field{Name: name, Text: f.Text, File: f.File})
	}
	return parts, nil
}

// FromParts decodes multipart parts back into fields. A part whose name is
// not a valid bracket path fails with *fieldpath.SyntaxError.
func FromParts(parts []upload.Field) ([]Field, error) {
	fields := make([]Field, 0, len(parts))
	for _, p := range parts {
		path, err := fieldpath.Decode(p.Name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Path: path, Text: p.Text, File: p.File})
	}
	return fields, nil
}
