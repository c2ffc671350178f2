package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryPath      Category = "path"
	CategoryPayload   Category = "payload"
	CategorySchema    Category = "schema"
	CategoryStream    Category = "stream"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
	CategoryInternal  Category = "internal"
)

// Location pinpoints where in a request the error was found.
type Location struct {
	// Path is the encoded field path, e.g. "data[variables][file]".
	Path string

	// Offset is the byte offset into the request body, or into Path when
	// the path itself is malformed. -1 when unknown.
	Offset int64

	// Line and Column locate a problem in query text.
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	var parts []string
	if l.Path != "" {
		parts = append(parts, l.Path)
	}
	if l.Offset >= 0 {
		parts = append(parts, fmt.Sprintf("offset %d", l.Offset))
	}
	if l.Line > 0 {
		parts = append(parts, fmt.Sprintf("%d:%d", l.Line, l.Column))
	}
	return strings.Join(parts, " ")
}

// BridgeError is a structured error with a stable code, the request
// location it refers to, and a hint for the caller.
type BridgeError struct {
	// Code is a unique error identifier (e.g., "FB100").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Status is the HTTP status the server answers with.
	Status int

	// Location is where in the request the error occurred.
	Location *Location

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BridgeError) Unwrap() error {
	return e.Wrapped
}

// WithPath records the field path the error refers to.
func (e *BridgeError) WithPath(path string) *BridgeError {
	e.location().Path = path
	return e
}

// WithOffset records the body offset the error refers to.
func (e *BridgeError) WithOffset(offset int64) *BridgeError {
	e.location().Offset = offset
	return e
}

// WithPosition records a line and column in query text.
func (e *BridgeError) WithPosition(line, column int) *BridgeError {
	loc := e.location()
	loc.Line = line
	loc.Column = column
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BridgeError) WithSuggestion(s string) *BridgeError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *BridgeError) WithDetail(d string) *BridgeError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *BridgeError) Wrap(err error) *BridgeError {
	e.Wrapped = err
	return e
}

func (e *BridgeError) location() *Location {
	if e.Location == nil {
		e.Location = &Location{Offset: -1}
	}
	return e.Location
}

// New creates a BridgeError from a registered error code.
func New(code string) *BridgeError {
	template, ok := registry[code]
	if !ok {
		return &BridgeError{
			Code:    code,
			Message: "Unknown error",
			Status:  http.StatusInternalServerError,
		}
	}
	return &BridgeError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		Status:   template.Status,
	}
}

// Newf creates a new BridgeError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *BridgeError {
	return &BridgeError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Status:   http.StatusInternalServerError,
	}
}

// FromError wraps a standard error in a BridgeError.
func FromError(err error, code string) *BridgeError {
	if err == nil {
		return nil
	}
	if be, ok := err.(*BridgeError); ok {
		return be
	}
	return New(code).Wrap(err)
}
