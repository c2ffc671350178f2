package payload

import (
	"fmt"

	"github.com/vango-dev/filebridge/pkg/upload"
)

// DefaultPayloadKey is the top-level field that carries the operation in a
// multipart body: data[query], data[operationName], data[variables]...
const DefaultPayloadKey = "data"

// OperationError reports an operation payload with a field of the wrong
// kind.
type OperationError struct {
	Field  string
	Reason string
}

func (e *OperationError) Error() string {
	if e.Field == "" {
		return "payload: invalid operation: " + e.Reason
	}
	return fmt.Sprintf("payload: invalid operation field %q: %s", e.Field, e.Reason)
}

// Operation is one query request: the query text, an optional operation
// name, and the variables the query refers to. File leaves live inside
// Variables.
type Operation struct {
	Query         string
	OperationName string
	Variables     Value
	Extensions    Value
}

// Value returns the operation as a map. Empty fields are omitted.
func (op Operation) Value() Value {
	m := map[string]Value{"query": String(op.Query)}
	if op.OperationName != "" {
		m["operationName"] = String(op.OperationName)
	}
	if !op.Variables.IsNull() {
		m["variables"] = op.Variables
	}
	if !op.Extensions.IsNull() {
		m["extensions"] = op.Extensions
	}
	return Map(m)
}

// Files returns every file referenced by the variables.
func (op Operation) Files() []*upload.File {
	return op.Variables.Files()
}

// MarshalJSON renders the operation as a JSON request body. Files are
// rendered as metadata objects.
func (op Operation) MarshalJSON() ([]byte, error) {
	return op.Value().MarshalJSON()
}

// OperationFromValue reads an operation out of a rebuilt payload. Unknown
// keys are ignored.
func OperationFromValue(v Value) (Operation, error) {
	if v.Kind() != KindMap {
		return Operation{}, &OperationError{Reason: fmt.Sprintf("expected a map, got %s", v.Kind())}
	}

	var op Operation
	if q, ok := v.Get("query"); ok {
		switch q.Kind() {
		case KindString:
			op.Query = q.Str()
		case KindNull:
		default:
			return Operation{}, &OperationError{Field: "query", Reason: fmt.Sprintf("expected a string, got %s", q.Kind())}
		}
	}
	if name, ok := v.Get("operationName"); ok {
		switch name.Kind() {
		case KindString:
			op.OperationName = name.Str()
		case KindNull:
		default:
			return Operation{}, &OperationError{Field: "operationName", Reason: fmt.Sprintf("expected a string, got %s", name.Kind())}
		}
	}
	for _, key := range []string{"variables", "extensions"} {
		field, ok := v.Get(key)
		if !ok || field.IsNull() {
			continue
		}
		if field.Kind() != KindMap {
			return Operation{}, &OperationError{Field: key, Reason: fmt.Sprintf("expected a map, got %s", field.Kind())}
		}
		if key == "variables" {
			op.Variables = field
		} else {
			op.Extensions = field
		}
	}
	return op, nil
}
