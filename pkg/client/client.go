package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vango-dev/filebridge/pkg/fieldpath"
	"github.com/vango-dev/filebridge/pkg/payload"
	"github.com/vango-dev/filebridge/pkg/upload"
)

// ErrNoEndpoint is returned by Do when the client has no endpoint.
var ErrNoEndpoint = errors.New("client: no endpoint configured")

// Operation is an outgoing operation.
type Operation = payload.Operation

// Request is what hooks see and may change before the request is sent.
type Request struct {
	Operation Operation
	Header    http.Header

	// Body and ContentType are set by the upload step, which runs after
	// every hook.
	Body        io.ReadCloser
	ContentType string

	// Multipart reports whether the body is multipart/form-data.
	Multipart bool
}

// Hook transforms a request before it is sent. Hooks run in the order
// they were added; an error aborts the send.
type Hook func(ctx context.Context, req *Request) error

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Default: http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithHook appends a pre-send hook.
func WithHook(h Hook) Option {
	return func(c *Client) {
		c.hooks = append(c.hooks, h)
	}
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return WithHook(func(_ context.Context, req *Request) error {
		req.Header.Set(key, value)
		return nil
	})
}

// WithPayloadKey sets the top-level multipart field holding the
// operation. It must match the server. Default: "data".
func WithPayloadKey(key string) Option {
	return func(c *Client) {
		c.payloadKey = key
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Client sends operations to a protocol endpoint. Operations whose
// variables hold files go out as multipart/form-data; all others as JSON.
type Client struct {
	endpoint   string
	http       *http.Client
	hooks      []Hook
	payloadKey string
	logger     *slog.Logger
}

// New creates a Client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		http:       http.DefaultClient,
		payloadKey: payload.DefaultPayloadKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "client")
	}
	return c
}

// Endpoint returns the URL operations are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do runs the hooks, encodes the operation and sends it once. Responses
// with a status of 400 or above are returned as *HTTPError.
//
// File handles in the operation are consumed by the send, whether or not
// it succeeds.
func (c *Client) Do(ctx context.Context, op Operation) (*Response, error) {
	if c.endpoint == "" {
		closeFiles(op)
		return nil, ErrNoEndpoint
	}

	req := &Request{Operation: op, Header: make(http.Header)}
	for _, h := range c.hooks {
		if err := h(ctx, req); err != nil {
			closeFiles(req.Operation)
			return nil, err
		}
	}
	if err := c.encode(req); err != nil {
		closeFiles(req.Operation)
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, req.Body)
	if err != nil {
		req.Body.Close()
		return nil, err
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", req.ContentType)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("sending operation",
		"operation", req.Operation.OperationName,
		"multipart", req.Multipart,
		"endpoint", c.endpoint,
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

// encode is the upload step. It always runs last so that hooks see and
// may change the operation before its files are committed to the wire.
func (c *Client) encode(req *Request) error {
	if !req.Operation.Variables.HasFiles() {
		body, err := req.Operation.MarshalJSON()
		if err != nil {
			return fmt.Errorf("client: encode operation: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentType = "application/json"
		return nil
	}

	body, contentType, err := EncodeMultipart(req.Operation, c.payloadKey)
	if err != nil {
		return err
	}
	req.Body = body
	req.ContentType = contentType
	req.Multipart = true
	return nil
}

// EncodeMultipart renders op as a streaming multipart body with every
// field named under key, e.g. data[variables][file].
func EncodeMultipart(op Operation, key string) (io.ReadCloser, string, error) {
	fields, err := payload.Flatten(op.Value(), fieldpath.New(key))
	if err != nil {
		return nil, "", fmt.Errorf("client: flatten operation: %w", err)
	}
	parts, err := payload.Parts(fields)
	if err != nil {
		return nil, "", fmt.Errorf("client: flatten operation: %w", err)
	}
	return upload.Encoder{}.Encode(parts)
}

func closeFiles(op Operation) {
	for _, f := range op.Files() {
		f.Close()
	}
}
