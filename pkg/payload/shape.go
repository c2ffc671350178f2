package payload

import "strconv"

// ShapeKind is the expected container kind at a position.
type ShapeKind uint8

const (
	// ShapeAny leaves the decision to Rebuild's default rule.
	ShapeAny ShapeKind = iota
	// ShapeMap keeps numeric-looking keys as map keys.
	ShapeMap
	// ShapeSequence requires dense indices and builds a sequence.
	ShapeSequence
)

// Shape describes the expected container layout of a payload. It is only
// consulted for containers; leaves are never coerced.
type Shape struct {
	Kind ShapeKind

	// Fields holds per-key shapes of a map.
	Fields map[string]*Shape

	// Elem is the shape of every sequence item, or of map values that have
	// no entry in Fields.
	Elem *Shape
}

// MapOf returns a map shape with per-key child shapes.
func MapOf(fields map[string]*Shape) *Shape {
	return &Shape{Kind: ShapeMap, Fields: fields}
}

// ValuesOf returns a map shape whose every value has shape elem.
func ValuesOf(elem *Shape) *Shape {
	return &Shape{Kind: ShapeMap, Elem: elem}
}

// SequenceOf returns a sequence shape.
func SequenceOf(elem *Shape) *Shape {
	return &Shape{Kind: ShapeSequence, Elem: elem}
}

// ShapeOf derives the exact shape of v, so that
// Rebuild(Flatten(v), WithTemplate(ShapeOf(v))) reproduces v even when a
// map uses keys that look like indices.
func ShapeOf(v Value) *Shape {
	switch v.kind {
	case KindMap:
		fields := make(map[string]*Shape, len(v.m))
		for k, child := range v.m {
			if s := ShapeOf(child); s != nil {
				fields[k] = s
			}
		}
		return MapOf(fields)
	case KindSequence:
		// Items may differ, so per-index shapes are kept in Fields.
		s := &Shape{Kind: ShapeSequence}
		for i, child := range v.seq {
			if cs := ShapeOf(child); cs != nil {
				if s.Fields == nil {
					s.Fields = map[string]*Shape{}
				}
				s.Fields[strconv.Itoa(i)] = cs
			}
		}
		return s
	}
	return nil
}

func (s *Shape) kind() ShapeKind {
	if s == nil {
		return ShapeAny
	}
	return s.Kind
}

// field returns the shape for the child at key. Explicit entries in Fields
// win over Elem; for sequences the key is the item index.
func (s *Shape) field(key string) *Shape {
	if s == nil {
		return nil
	}
	if child, ok := s.Fields[key]; ok {
		return child
	}
	return s.Elem
}
