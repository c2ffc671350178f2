package bridge

import (
	"context"

	"github.com/vango-dev/filebridge/pkg/payload"
)

type operationKey struct{}

// NewContext returns a copy of ctx carrying op.
func NewContext(ctx context.Context, op payload.Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the operation rebuilt by the middleware,
// with File leaves holding *upload.File handles.
func OperationFromContext(ctx context.Context) (payload.Operation, bool) {
	op, ok := ctx.Value(operationKey{}).(payload.Operation)
	return op, ok
}
