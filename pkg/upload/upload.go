package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned when a spooled file doesn't exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrConsumed is returned when a file stream is read after it was closed.
// File streams are single-pass.
var ErrConsumed = errors.New("upload: file already consumed")

// Store is the interface for spool backends. The multipart parser streams
// every file part into a Store so that no file is held in memory; the
// resulting *File reads the bytes back on demand.
type Store interface {
	// Save streams r into the spool and returns a temp ID and the number
	// of bytes written.
	Save(ctx context.Context, filename, contentType string, r io.Reader) (tempID string, size int64, err error)

	// Claim opens a spooled file for reading. The spool entry is removed
	// when the returned reader is closed.
	Claim(ctx context.Context, tempID string) (io.ReadCloser, error)

	// Discard removes a spooled file that was never claimed.
	Discard(ctx context.Context, tempID string) error

	// Cleanup removes spool entries older than maxAge.
	// Call this periodically (e.g., every 5 minutes).
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File is an opaque handle to an uploaded byte stream plus its metadata.
//
// The stream is opened lazily on the first Read and can be read once.
// Close releases the underlying resource whether or not it was read.
type File struct {
	// ID identifies the spool entry backing the file, if any.
	ID string

	// Filename is the original filename from the client.
	Filename string

	// ContentType is the declared MIME type of the file.
	ContentType string

	// Size is the file size in bytes, or -1 when unknown.
	Size int64

	mu      sync.Mutex
	open    func() (io.ReadCloser, error)
	discard func() error
	reader  io.ReadCloser
	closed  bool
}

// NewFile returns a handle whose stream is produced by open on first read.
func NewFile(filename, contentType string, size int64, open func() (io.ReadCloser, error)) *File {
	return &File{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		open:        open,
	}
}

// FromReader wraps an already open stream.
func FromReader(filename, contentType string, size int64, rc io.ReadCloser) *File {
	return &File{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		reader:      rc,
	}
}

// OpenFile returns a handle for a file on the local filesystem. The content
// type is sniffed from the file header; the file itself is only opened when
// the handle is first read.
func OpenFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("upload: %s is a directory", path)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("upload: detect content type of %s: %w", path, err)
	}
	return NewFile(info.Name(), mtype.String(), info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

// Spooled returns a handle backed by a spool entry in store.
func Spooled(store Store, tempID, filename, contentType string, size int64) *File {
	return &File{
		ID:          tempID,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		open: func() (io.ReadCloser, error) {
			return store.Claim(context.Background(), tempID)
		},
		discard: func() error {
			return store.Discard(context.Background(), tempID)
		},
	}
}

// Read reads from the file stream, opening it on first use.
func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, ErrConsumed
	}
	if f.reader == nil {
		if f.open == nil {
			f.mu.Unlock()
			return 0, io.EOF
		}
		rc, err := f.open()
		if err != nil {
			f.mu.Unlock()
			return 0, fmt.Errorf("upload: open %s: %w", f.Filename, err)
		}
		f.reader = rc
	}
	r := f.reader
	f.mu.Unlock()

	n, err := r.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("upload: read %s: %w", f.Filename, err)
	}
	return n, err
}

// Close releases the file stream. Closing an unread spooled file discards
// its spool entry. Close is safe to call more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.reader != nil {
		return f.reader.Close()
	}
	if f.discard != nil {
		return f.discard()
	}
	return nil
}

// Closed reports whether Close has been called.
func (f *File) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// String returns a short description for logs.
func (f *File) String() string {
	if f == nil {
		return "<nil file>"
	}
	return fmt.Sprintf("%s (%s, %d bytes)", f.Filename, f.ContentType, f.Size)
}
