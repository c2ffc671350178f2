package bridge

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	fberrors "github.com/vango-dev/filebridge/internal/errors"
	"github.com/vango-dev/filebridge/pkg/payload"
	"github.com/vango-dev/filebridge/pkg/scalar"
	"github.com/vango-dev/filebridge/pkg/upload"
)

// Config configures a Bridge.
type Config struct {
	// PayloadKey is the top-level field holding the operation.
	// Default: payload.DefaultPayloadKey ("data").
	PayloadKey string

	// MaxFieldBytes bounds each text part. 0 means unbounded.
	MaxFieldBytes int64

	// Variables is the expected shape of the operation variables. It
	// decides whether numeric keys build sequences or maps.
	//
	// Without it, any object whose keys are exactly "0".."n-1" is rebuilt
	// as a sequence, so {"byId": {"0": "a"}} arrives as {"byId": ["a"]}.
	// Pass a template whenever variables hold maps keyed by numbers.
	Variables *payload.Shape

	// Literals, when set, rejects operations that write File values
	// inline in the query text.
	Literals *scalar.LiteralChecker
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithObserver adds an observer that is told about every request.
func WithObserver(o Observer) Option {
	return func(b *Bridge) {
		b.observers = append(b.observers, o)
	}
}

// Bridge turns multipart requests back into structured operations.
type Bridge struct {
	cfg       Config
	store     upload.Store
	logger    *slog.Logger
	observers multiObserver
}

// New creates a Bridge that spools file parts into store.
func New(cfg Config, store upload.Store, opts ...Option) *Bridge {
	if cfg.PayloadKey == "" {
		cfg.PayloadKey = payload.DefaultPayloadKey
	}
	b := &Bridge{cfg: cfg, store: store}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default().With("component", "bridge")
	}
	return b
}

// Middleware returns an http.Handler that decodes multipart requests before
// calling next. Other requests pass through untouched.
//
// For a multipart request the rebuilt operation is stored in the request
// context (see OperationFromContext) and the body is replaced by its JSON
// rendering. Files nobody read are released after next returns. A request
// that cannot be decoded is answered with a JSON error body and next is
// never called.
func (b *Bridge) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ev := RequestEvent{Route: routePattern(r)}

		if !upload.IsMultipart(r) {
			b.observers.ObserveRequest(ctx, ev)
			next.ServeHTTP(w, r)
			return
		}

		ev.Multipart = true
		start := time.Now()
		op, form, err := b.decode(ctx, r)
		ev.Duration = time.Since(start)

		if err != nil {
			be := fberrors.Describe(err)
			ev.Err = err
			ev.Code = be.Code
			b.observers.ObserveRequest(ctx, ev)
			b.logger.Warn("rejected upload request",
				"route", ev.Route,
				"code", be.Code,
				"error", err,
			)
			writeError(w, be)
			return
		}
		defer func() {
			if cerr := form.Close(); cerr != nil {
				b.logger.Warn("release unread files", "error", cerr)
			}
		}()

		for _, f := range form.Files() {
			ev.Files++
			if f.Size > 0 {
				ev.Bytes += f.Size
			}
		}
		b.observers.ObserveRequest(ctx, ev)

		body, err := op.MarshalJSON()
		if err != nil {
			writeError(w, fberrors.Describe(err))
			return
		}

		r2 := r.WithContext(NewContext(ctx, op))
		r2.Header = r.Header.Clone()
		r2.Header.Set("Content-Type", "application/json")
		r2.Header.Set("Content-Length", strconv.Itoa(len(body)))
		r2.ContentLength = int64(len(body))
		r2.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r2)
	})
}

// Decode parses a multipart request into an operation. The caller must
// Close the returned form once the operation has been handled.
func (b *Bridge) Decode(r *http.Request) (payload.Operation, *upload.Form, error) {
	return b.decode(r.Context(), r)
}

func (b *Bridge) decode(ctx context.Context, r *http.Request) (payload.Operation, *upload.Form, error) {
	form, err := upload.ParseRequest(ctx, r, upload.ParseOptions{
		Store:         b.store,
		MaxFieldBytes: b.cfg.MaxFieldBytes,
		Logger:        b.logger,
	})
	if err != nil {
		return payload.Operation{}, nil, err
	}

	op, err := b.rebuild(form)
	if err != nil {
		if cerr := form.Close(); cerr != nil {
			b.logger.Warn("release spooled files", "error", cerr)
		}
		return payload.Operation{}, nil, err
	}
	b.logger.Debug("rebuilt operation",
		"operation", op.OperationName,
		"fields", len(form.Fields),
		"files", len(form.Files()),
	)
	return op, form, nil
}

func (b *Bridge) rebuild(form *upload.Form) (payload.Operation, error) {
	fields, err := payload.FromParts(form.Fields)
	if err != nil {
		return payload.Operation{}, err
	}

	var opts []payload.RebuildOption
	if b.cfg.Variables != nil {
		opts = append(opts, payload.WithTemplate(payload.MapOf(map[string]*payload.Shape{
			b.cfg.PayloadKey: payload.MapOf(map[string]*payload.Shape{
				"variables": b.cfg.Variables,
			}),
		})))
	}
	root, err := payload.Rebuild(fields, opts...)
	if err != nil {
		return payload.Operation{}, err
	}

	data, err := payload.ExtractOperation(root, b.cfg.PayloadKey)
	if err != nil {
		return payload.Operation{}, err
	}
	op, err := payload.OperationFromValue(data)
	if err != nil {
		return payload.Operation{}, err
	}

	if b.cfg.Literals != nil {
		if err := b.cfg.Literals.Check(op.Query); err != nil {
			return payload.Operation{}, err
		}
	}
	return op, nil
}

// Mount registers h on route with the bridge middleware in front of it.
func Mount(r chi.Router, route string, b *Bridge, h http.Handler) {
	r.With(b.Middleware).Handle(route, h)
}

func writeError(w http.ResponseWriter, be *fberrors.BridgeError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(be.Status)
	_ = be.WriteJSON(w)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
