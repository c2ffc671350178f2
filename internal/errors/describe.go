package errors

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/vango-dev/filebridge/pkg/fieldpath"
	"github.com/vango-dev/filebridge/pkg/payload"
	"github.com/vango-dev/filebridge/pkg/scalar"
	"github.com/vango-dev/filebridge/pkg/upload"
)

// Describe maps an error returned by the bridge packages to its catalog
// entry. Unknown errors map to FB199. Describe returns nil for a nil error.
func Describe(err error) *BridgeError {
	if err == nil {
		return nil
	}

	var (
		be         *BridgeError
		maxBytes   *http.MaxBytesError
		formatErr  *upload.FormatError
		spoolErr   *upload.SpoolError
		pathErr    *fieldpath.SyntaxError
		collision  *payload.CollisionError
		shapeErr   *payload.ShapeError
		literalErr *scalar.LiteralNotAllowedError
		querySyn   *scalar.SyntaxError
		opErr      *payload.OperationError
	)

	switch {
	case stderrors.As(err, &be):
		return be
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return New("FB101").Wrap(err)
	case stderrors.As(err, &maxBytes):
		return New("FB102").Wrap(err).
			WithSuggestion("Send smaller files or raise the server's body limit.")
	case stderrors.As(err, &formatErr):
		e := New("FB100").Wrap(err).WithOffset(formatErr.Offset)
		if formatErr.Field != "" {
			e.WithPath(formatErr.Field)
		}
		return e
	case stderrors.As(err, &spoolErr):
		return New("FB141").Wrap(err).WithPath(spoolErr.Field)
	case stderrors.As(err, &pathErr):
		e := New("FB110").Wrap(err).WithPath(pathErr.Input)
		if pathErr.Offset >= 0 {
			e.WithOffset(int64(pathErr.Offset))
		}
		return e
	case stderrors.As(err, &collision):
		return New("FB111").Wrap(err).WithPath(collision.Path.String())
	case stderrors.As(err, &shapeErr):
		return New("FB112").Wrap(err).WithPath(shapeErr.Path.String())
	case stderrors.Is(err, payload.ErrMissingPayload):
		return New("FB120").Wrap(err).
			WithSuggestion("Name operation fields data[query], data[operationName] and data[variables]...")
	case stderrors.Is(err, payload.ErrUnnamedLeaf):
		return New("FB121").Wrap(err)
	case stderrors.As(err, &opErr):
		e := New("FB122").Wrap(err)
		if opErr.Field != "" {
			e.WithPath(payload.DefaultPayloadKey + "[" + opErr.Field + "]")
		}
		return e
	case stderrors.As(err, &literalErr):
		return New("FB130").Wrap(err).
			WithPosition(literalErr.Literal.Line, literalErr.Literal.Column).
			WithSuggestion("Declare a variable of type File and pass the file through it.")
	case stderrors.As(err, &querySyn):
		return New("FB131").Wrap(err).WithPosition(querySyn.Line, querySyn.Column)
	case stderrors.Is(err, upload.ErrConsumed), stderrors.Is(err, upload.ErrNotFound):
		return New("FB140").Wrap(err)
	}
	return New("FB199").Wrap(err)
}

// Status returns the HTTP status for err.
func Status(err error) int {
	if be := Describe(err); be != nil && be.Status != 0 {
		return be.Status
	}
	return http.StatusInternalServerError
}
