package payload

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vango-dev/filebridge/pkg/fieldpath"
)

// CollisionError reports two fields that target the same position, or a
// field that is both a leaf and the parent of another field. The first
// writer never silently wins.
type CollisionError struct {
	Path   fieldpath.Path
	Reason string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("payload: path collision at %s: %s", e.Path, e.Reason)
}

// ShapeError reports a rebuilt container that contradicts the template.
type ShapeError struct {
	Path   fieldpath.Path
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("payload: shape mismatch at %s: %s", e.Path, e.Reason)
}

// ErrMissingPayload is returned by ExtractOperation when the designated key
// is absent.
var ErrMissingPayload = errors.New("payload: operation payload key not found")

// RebuildOption configures Rebuild.
type RebuildOption func(*rebuildConfig)

type rebuildConfig struct {
	template *Shape
}

// WithTemplate resolves index-vs-key ambiguity using the expected shape of
// the destination.
func WithTemplate(s *Shape) RebuildOption {
	return func(c *rebuildConfig) {
		c.template = s
	}
}

// node is a position in the tree under construction.
type node struct {
	leaf     *Value
	children map[string]*node
}

// Rebuild reconstructs a nested value from flat fields. It is the inverse
// of Flatten.
//
// Text fields are parsed as JSON; text that is not valid JSON (a plain form
// field) becomes a string. Containers are built as maps. After all fields
// are placed, a map whose keys are exactly "0".."n-1" becomes a sequence
// unless the template says that position is a map. The order of fields
// does not affect the result.
func Rebuild(fields []Field, opts ...RebuildOption) (Value, error) {
	var cfg rebuildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	root := &node{children: map[string]*node{}}
	for _, f := range fields {
		if err := place(root, f); err != nil {
			return Value{}, err
		}
	}
	return build(root, nil, cfg.template)
}

func place(root *node, f Field) error {
	if len(f.Path) == 0 {
		return &CollisionError{Path: f.Path, Reason: "empty path"}
	}

	leaf, err := fieldValue(f)
	if err != nil {
		return err
	}

	n := root
	last := len(f.Path) - 1
	for i, seg := range f.Path {
		key := seg.String()
		if n.leaf != nil {
			return &CollisionError{Path: f.Path[:i], Reason: "value is both a leaf and a container"}
		}
		child, exists := n.children[key]
		if i == last {
			if exists {
				if child.leaf != nil {
					return &CollisionError{Path: f.Path, Reason: "duplicate field"}
				}
				return &CollisionError{Path: f.Path, Reason: "value is both a leaf and a container"}
			}
			n.children[key] = &node{leaf: &leaf}
			return nil
		}
		if !exists {
			child = &node{children: map[string]*node{}}
			n.children[key] = child
		}
		n = child
	}
	return nil
}

func fieldValue(f Field) (Value, error) {
	if f.File != nil {
		return File(f.File), nil
	}
	v, err := FromJSON([]byte(f.Text))
	if err != nil {
		return String(f.Text), nil
	}
	return v, nil
}

func build(n *node, path fieldpath.Path, shape *Shape) (Value, error) {
	if n.leaf != nil {
		return *n.leaf, nil
	}

	keys := make([]string, 0, len(n.children))
	for k := range n.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var asSequence bool
	dense := isDense(keys)
	switch shape.kind() {
	case ShapeSequence:
		if !dense {
			return Value{}, &ShapeError{Path: path, Reason: "expected a sequence but keys are not indices 0..n-1"}
		}
		asSequence = true
	case ShapeMap:
	default:
		// The root holds transport keys ("data"), never indices.
		asSequence = dense && len(path) > 0
	}

	if asSequence {
		items := make([]Value, len(keys))
		for _, k := range keys {
			idx, _ := fieldpath.Key(k).Index()
			child, err := build(n.children[k], path.Append(fieldpath.Index(idx)), shape.field(k))
			if err != nil {
				return Value{}, err
			}
			items[idx] = child
		}
		return Sequence(items...), nil
	}

	m := make(map[string]Value, len(keys))
	for _, k := range keys {
		child, err := build(n.children[k], path.AppendKey(k), shape.field(k))
		if err != nil {
			return Value{}, err
		}
		m[k] = child
	}
	return Map(m), nil
}

// isDense reports whether keys are exactly the canonical indices 0..n-1.
func isDense(keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	seen := make([]bool, len(keys))
	for _, k := range keys {
		idx, ok := fieldpath.Key(k).Index()
		if !ok || idx >= len(keys) || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

// ExtractOperation returns the value stored under key in the rebuilt root.
// Everything else in the root is transport metadata and is dropped.
func ExtractOperation(root Value, key string) (Value, error) {
	v, ok := root.Get(key)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrMissingPayload, key)
	}
	return v, nil
}
