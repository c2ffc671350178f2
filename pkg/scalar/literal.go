package scalar

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// SyntaxError reports query text that does not parse.
type SyntaxError struct {
	Offset int // byte offset, -1 when the parser gave no position
	Line   int
	Column int
	Reason string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("scalar: syntax error at %d:%d: %s", e.Line, e.Column, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// LiteralChecker finds inline literals given to arguments whose type is a
// registered scalar, and passes each to that scalar's ParseLiteral. The
// query is parsed but not validated against a schema; that stays with the
// schema engine.
type LiteralChecker struct {
	// Registry resolves scalar names. Nil means a registry holding File.
	Registry *Registry

	// Arguments maps "field.argument" (or "@directive.argument") to the
	// scalar type name of that argument.
	Arguments map[string]string
}

var defaultRegistry = NewRegistry(File)

// CheckInlineLiterals rejects inline literals for the named File-typed
// arguments, each given as "field.argument", and for default values of
// variables declared as File.
func CheckInlineLiterals(query string, fileArguments ...string) error {
	c := &LiteralChecker{Arguments: make(map[string]string, len(fileArguments))}
	for _, arg := range fileArguments {
		c.Arguments[arg] = FileName
	}
	return c.Check(query)
}

// Check parses query and returns the first error produced by a scalar's
// ParseLiteral, or a *SyntaxError. Variables and null are always accepted;
// list literals are checked element by element.
func (c *LiteralChecker) Check(query string) error {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil {
		return syntaxError(query, err)
	}

	w := &walker{c: c}
	for _, op := range doc.Operations {
		if err := w.variables(op.VariableDefinitions); err != nil {
			return err
		}
		if err := w.directives(op.Directives); err != nil {
			return err
		}
		if err := w.selections(op.SelectionSet); err != nil {
			return err
		}
	}
	for _, frag := range doc.Fragments {
		if err := w.variables(frag.VariableDefinition); err != nil {
			return err
		}
		if err := w.directives(frag.Directives); err != nil {
			return err
		}
		if err := w.selections(frag.SelectionSet); err != nil {
			return err
		}
	}
	return nil
}

func (c *LiteralChecker) registry() *Registry {
	if c.Registry == nil {
		return defaultRegistry
	}
	return c.Registry
}

func (c *LiteralChecker) argumentScalar(owner, arg string) (Scalar, bool) {
	name, ok := c.Arguments[owner+"."+arg]
	if !ok {
		return nil, false
	}
	return c.registry().Lookup(name)
}

type walker struct {
	c *LiteralChecker
}

func (w *walker) selections(set ast.SelectionSet) error {
	for _, sel := range set {
		switch sel := sel.(type) {
		case *ast.Field:
			if err := w.arguments(sel.Name, sel.Arguments); err != nil {
				return err
			}
			if err := w.directives(sel.Directives); err != nil {
				return err
			}
			if err := w.selections(sel.SelectionSet); err != nil {
				return err
			}
		case *ast.InlineFragment:
			if err := w.directives(sel.Directives); err != nil {
				return err
			}
			if err := w.selections(sel.SelectionSet); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			if err := w.directives(sel.Directives); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) directives(list ast.DirectiveList) error {
	for _, d := range list {
		if err := w.arguments("@"+d.Name, d.Arguments); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) arguments(owner string, args ast.ArgumentList) error {
	for _, arg := range args {
		sc, ok := w.c.argumentScalar(owner, arg.Name)
		if !ok {
			continue
		}
		if err := w.check(sc, arg.Value); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) variables(defs ast.VariableDefinitionList) error {
	for _, def := range defs {
		if def.DefaultValue != nil && def.Type != nil {
			if sc, ok := w.c.registry().Lookup(def.Type.Name()); ok {
				if err := w.check(sc, def.DefaultValue); err != nil {
					return err
				}
			}
		}
		if err := w.directives(def.Directives); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) check(sc Scalar, v *ast.Value) error {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ast.Variable, ast.NullValue:
		return nil
	case ast.ListValue:
		for _, child := range v.Children {
			if err := w.check(sc, child.Value); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := sc.ParseLiteral(w.literal(v))
	return err
}

func (w *walker) literal(v *ast.Value) Literal {
	lit := Literal{Kind: literalKind(v.Kind), Raw: v.String()}
	if v.Position != nil {
		lit.Line, lit.Column = v.Position.Line, v.Position.Column
	}
	return lit
}

func literalKind(k ast.ValueKind) LiteralKind {
	switch k {
	case ast.StringValue, ast.BlockValue:
		return LiteralString
	case ast.IntValue:
		return LiteralInt
	case ast.FloatValue:
		return LiteralFloat
	case ast.BooleanValue:
		return LiteralBoolean
	case ast.NullValue:
		return LiteralNull
	case ast.EnumValue:
		return LiteralEnum
	case ast.ObjectValue:
		return LiteralObject
	default:
		return LiteralList
	}
}

func syntaxError(src string, err error) *SyntaxError {
	se := &SyntaxError{Offset: -1, Reason: err.Error(), Err: err}
	var gerr *gqlerror.Error
	if errors.As(err, &gerr) {
		se.Reason = gerr.Message
		if len(gerr.Locations) > 0 {
			se.Line, se.Column = gerr.Locations[0].Line, gerr.Locations[0].Column
			se.Offset = byteOffset(src, se.Line, se.Column)
		}
	}
	return se
}

// byteOffset converts a 1-based line and rune column to a byte offset.
func byteOffset(src string, line, column int) int {
	off := 0
	for l := 1; l < line; l++ {
		i := strings.IndexByte(src[off:], '\n')
		if i < 0 {
			return len(src)
		}
		off += i + 1
	}
	for c := 1; c < column && off < len(src); c++ {
		_, size := utf8.DecodeRuneInString(src[off:])
		off += size
	}
	return off
}
