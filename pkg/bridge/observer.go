package bridge

import (
	"context"
	"time"
)

// RequestEvent describes one request seen by the middleware.
type RequestEvent struct {
	// Route is the chi route pattern, or the URL path outside chi.
	Route string

	// Multipart is false for requests passed through untouched.
	Multipart bool

	// Files and Bytes count the file parts spooled for the request.
	Files int
	Bytes int64

	// Duration covers parsing and rebuilding.
	Duration time.Duration

	// Err is the decoding error and Code its catalog code. Both are empty
	// for accepted requests.
	Err  error
	Code string
}

// Observer is told about every request the middleware handles. ctx is the
// request context, so tracing observers can reach the active span.
type Observer interface {
	ObserveRequest(ctx context.Context, ev RequestEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev RequestEvent)

// ObserveRequest calls f.
func (f ObserverFunc) ObserveRequest(ctx context.Context, ev RequestEvent) {
	f(ctx, ev)
}

type multiObserver []Observer

func (m multiObserver) ObserveRequest(ctx context.Context, ev RequestEvent) {
	for _, o := range m {
		o.ObserveRequest(ctx, ev)
	}
}
