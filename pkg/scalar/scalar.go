package scalar

import (
	"fmt"
	"sort"
	"strings"
)

// SDL declares the File scalar for a schema.
const SDL = `# A file upload.
scalar File
`

// FileName is the schema name of the File scalar.
const FileName = "File"

// Scalar is the contract a schema engine uses for an opaque leaf type.
type Scalar interface {
	// Name is the type name in the schema.
	Name() string

	// Description is the schema doc string.
	Description() string

	// Serialize converts a resolver result for output.
	Serialize(v any) (any, error)

	// ParseValue converts a variable value for resolvers.
	ParseValue(v any) (any, error)

	// ParseLiteral converts a literal written inline in the query text.
	ParseLiteral(lit Literal) (any, error)
}

// LiteralKind classifies an inline literal.
type LiteralKind string

const (
	LiteralString  LiteralKind = "string"
	LiteralInt     LiteralKind = "int"
	LiteralFloat   LiteralKind = "float"
	LiteralBoolean LiteralKind = "boolean"
	LiteralNull    LiteralKind = "null"
	LiteralEnum    LiteralKind = "enum"
	LiteralList    LiteralKind = "list"
	LiteralObject  LiteralKind = "object"
)

// Literal is a value written directly in query text.
type Literal struct {
	Kind   LiteralKind
	Raw    string // source text of the literal
	Line   int    // 1-based
	Column int    // 1-based
}

// String returns the literal with its position.
func (l Literal) String() string {
	if l.Line > 0 {
		return fmt.Sprintf("%s literal %s at %d:%d", l.Kind, l.Raw, l.Line, l.Column)
	}
	return fmt.Sprintf("%s literal %s", l.Kind, l.Raw)
}

// LiteralNotAllowedError is returned when a scalar that only accepts
// variables meets an inline literal.
type LiteralNotAllowedError struct {
	Scalar  string
	Literal Literal
}

func (e *LiteralNotAllowedError) Error() string {
	return fmt.Sprintf("scalar: %s literals are not allowed (found %s)", e.Scalar, e.Literal)
}

// FileScalar implements the File scalar. Files arrive only through the
// multipart side channel, so the value is passed through untouched and
// inline literals are always rejected.
type FileScalar struct{}

// File is the File scalar.
var File Scalar = FileScalar{}

func (FileScalar) Name() string { return FileName }

func (FileScalar) Description() string { return "A file upload." }

// Serialize returns v unchanged.
func (FileScalar) Serialize(v any) (any, error) { return v, nil }

// ParseValue returns v unchanged. The bridge has already placed a file
// handle at this position.
func (FileScalar) ParseValue(v any) (any, error) { return v, nil }

// ParseLiteral always fails.
func (FileScalar) ParseLiteral(lit Literal) (any, error) {
	return nil, &LiteralNotAllowedError{Scalar: FileName, Literal: lit}
}

// Registry maps scalar names to implementations.
type Registry struct {
	scalars map[string]Scalar
}

// NewRegistry returns a registry holding the given scalars.
func NewRegistry(scalars ...Scalar) *Registry {
	r := &Registry{scalars: make(map[string]Scalar, len(scalars))}
	for _, s := range scalars {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a scalar.
func (r *Registry) Register(s Scalar) {
	r.scalars[s.Name()] = s
}

// Lookup returns the scalar named name.
func (r *Registry) Lookup(name string) (Scalar, bool) {
	s, ok := r.scalars[name]
	return s, ok
}

// SDL renders a scalar declaration for every registered scalar.
func (r *Registry) SDL() string {
	names := make([]string, 0, len(r.scalars))
	for name := range r.scalars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		if desc := r.scalars[name].Description(); desc != "" {
			fmt.Fprintf(&b, "# %s\n", desc)
		}
		fmt.Fprintf(&b, "scalar %s\n", name)
	}
	return b.String()
}
