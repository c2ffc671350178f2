package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// FormatError reports a multipart body that is not structurally valid:
// missing boundary, truncated part, missing closing delimiter, or a part
// without a field name.
type FormatError struct {
	Offset int64 // bytes consumed from the body when the problem was found
	Field  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("upload: malformed multipart body")
	if e.Field != "" {
		fmt.Fprintf(&b, " in field %q", e.Field)
	}
	fmt.Fprintf(&b, " at offset %d: %s", e.Offset, e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// SpoolError reports a Store that failed to accept a well-formed file part.
type SpoolError struct {
	Field string
	Err   error
}

func (e *SpoolError) Error() string {
	return fmt.Sprintf("upload: spool %s: %v", e.Field, e.Err)
}

func (e *SpoolError) Unwrap() error {
	return e.Err
}

// Field is one named part of a parsed multipart body. Exactly one of Text
// or File is meaningful: File is non-nil for parts that carried a filename.
type Field struct {
	Name string
	Text string
	File *File
}

// Form is the result of parsing a multipart body. Fields are kept in arrival
// order, but nothing downstream depends on that order.
type Form struct {
	Fields []Field
}

// Files returns the file parts of the form.
func (f *Form) Files() []*File {
	var files []*File
	for _, field := range f.Fields {
		if field.File != nil {
			files = append(files, field.File)
		}
	}
	return files
}

// Value returns the first text value for name.
func (f *Form) Value(name string) (string, bool) {
	for _, field := range f.Fields {
		if field.Name == name && field.File == nil {
			return field.Text, true
		}
	}
	return "", false
}

// Close releases every file in the form that nobody consumed.
func (f *Form) Close() error {
	var errs []error
	for _, file := range f.Files() {
		if err := file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseOptions configures Parse.
type ParseOptions struct {
	// Store spools file parts. Required.
	Store Store

	// MaxFieldBytes bounds a single text part. Zero means unbounded.
	MaxFieldBytes int64

	// Logger receives per-part debug logs. Nil means slog.Default().
	Logger *slog.Logger
}

// IsMultipart reports whether the request carries a multipart/form-data body.
func IsMultipart(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "multipart/form-data")
}

// ParseRequest parses the multipart body of r. The request need not carry a
// Content-Length.
func ParseRequest(ctx context.Context, r *http.Request, opts ParseOptions) (*Form, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FormatError{Reason: "invalid content type", Err: err}
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, &FormatError{Reason: fmt.Sprintf("content type %q is not multipart", mediaType)}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, &FormatError{Reason: "missing boundary"}
	}
	return Parse(ctx, r.Body, boundary, opts)
}

// Parse reads a multipart body framed by boundary. Text parts are collected
// in memory; file parts are streamed into opts.Store as they arrive.
//
// Parse stops at the first error. Spooled files are then discarded and the
// partial form is dropped, so callers never see a half-built form. A
// canceled ctx aborts the read and returns ctx.Err().
func Parse(ctx context.Context, body io.Reader, boundary string, opts ParseOptions) (*Form, error) {
	if opts.Store == nil {
		return nil, errors.New("upload: Parse requires a Store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	counter := newCountingReader(ctx, body, boundary)
	mr := multipart.NewReader(counter, boundary)
	form := &Form{}

	fail := func(err error) (*Form, error) {
		if cerr := form.Close(); cerr != nil {
			logger.Warn("release spooled files", "error", cerr)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		part, err := mr.NextPart()
		if err == io.EOF {
			// NextPart also reports io.EOF when the body ends right after a
			// delimiter line, so only a seen close delimiter ends the form.
			if !counter.closed() {
				return fail(&FormatError{Offset: counter.n, Reason: "missing closing boundary"})
			}
			break
		}
		if err != nil {
			return fail(&FormatError{Offset: counter.n, Reason: "bad part boundary or header", Err: err})
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			return fail(&FormatError{Offset: counter.n, Reason: "part has no field name"})
		}

		if filename := part.FileName(); filename != "" {
			file, err := spoolPart(ctx, opts.Store, part, name, filename, counter)
			part.Close()
			if err != nil {
				return fail(err)
			}
			logger.Debug("spooled file part", "field", name, "filename", filename, "size", file.Size)
			form.Fields = append(form.Fields, Field{Name: name, File: file})
			continue
		}

		text, err := readText(part, name, opts.MaxFieldBytes, counter)
		part.Close()
		if err != nil {
			return fail(err)
		}
		logger.Debug("read text part", "field", name, "bytes", len(text))
		form.Fields = append(form.Fields, Field{Name: name, Text: text})
	}

	return form, nil
}

func spoolPart(ctx context.Context, store Store, part *multipart.Part, name, filename string, counter *countingReader) (*File, error) {
	contentType := part.Header.Get("Content-Type")
	src := &trackedReader{r: part}

	tempID, size, err := store.Save(ctx, filename, contentType, src)
	if err != nil {
		if src.err != nil && src.err != io.EOF {
			return nil, &FormatError{Offset: counter.n, Field: name, Reason: "truncated file part", Err: src.err}
		}
		return nil, &SpoolError{Field: name, Err: err}
	}
	return Spooled(store, tempID, filename, contentType, size), nil
}

func readText(part *multipart.Part, name string, limit int64, counter *countingReader) (string, error) {
	var r io.Reader = part
	if limit > 0 {
		r = io.LimitReader(part, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &FormatError{Offset: counter.n, Field: name, Reason: "truncated text part", Err: err}
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", &FormatError{Offset: counter.n, Field: name, Reason: fmt.Sprintf("text part exceeds %d bytes", limit)}
	}
	return string(data), nil
}

// tailWindow bounds the bytes countingReader keeps. The multipart reader
// buffers 4 KiB, so the close delimiter is always inside the last window.
const tailWindow = 8 << 10

// countingReader tracks how many body bytes were consumed, keeps the tail
// of them, and stops reading once ctx is done.
type countingReader struct {
	ctx   context.Context
	r     io.Reader
	n     int64
	tail  []byte
	delim []byte
}

func newCountingReader(ctx context.Context, r io.Reader, boundary string) *countingReader {
	return &countingReader{
		ctx:   ctx,
		r:     r,
		tail:  []byte("\n"),
		delim: []byte("\n--" + boundary + "--"),
	}
}

func (c *countingReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	c.n += int64(n)
	c.tail = append(c.tail, p[:n]...)
	if over := len(c.tail) - tailWindow - len(c.delim); over > 0 {
		c.tail = append(c.tail[:0], c.tail[over:]...)
	}
	return n, err
}

// closed reports whether the close delimiter has been read.
func (c *countingReader) closed() bool {
	return bytes.Contains(c.tail, c.delim)
}

// trackedReader remembers the last error returned by the part so a
// truncated body can be told apart from a failing Store.
type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
