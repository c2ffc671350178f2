package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DiskStore spools uploads on the local filesystem.
type DiskStore struct {
	dir string

	mu    sync.Mutex
	files map[string]time.Time
}

// NewDiskStore creates a new DiskStore rooted at dir.
func NewDiskStore(dir string) (*DiskStore, error) {
	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &DiskStore{
		dir:   dir,
		files: make(map[string]time.Time),
	}, nil
}

// Dir returns the spool directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save streams r into a new spool file and returns its temp ID.
func (s *DiskStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	tempID := uuid.NewString()
	path := filepath.Join(s.dir, tempID)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}

	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}

	s.mu.Lock()
	s.files[tempID] = time.Now()
	s.mu.Unlock()

	return tempID, written, nil
}

// Claim opens a spool file. The file is deleted when the reader is closed.
func (s *DiskStore) Claim(_ context.Context, tempID string) (io.ReadCloser, error) {
	s.mu.Lock()
	_, ok := s.files[tempID]
	if ok {
		delete(s.files, tempID)
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	path := filepath.Join(s.dir, tempID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &deleteOnCloseReader{File: f, path: path}, nil
}

// Discard deletes a spool file that was never claimed.
func (s *DiskStore) Discard(_ context.Context, tempID string) error {
	s.mu.Lock()
	_, ok := s.files[tempID]
	delete(s.files, tempID)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, tempID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Cleanup removes spool files older than maxAge, including orphans left by
// a previous process.
func (s *DiskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	for tempID, created := range s.files {
		if created.Before(cutoff) {
			delete(s.files, tempID)
			os.Remove(filepath.Join(s.dir, tempID))
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}
		if _, live := s.files[entry.Name()]; live {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}

	return nil
}

// deleteOnCloseReader wraps a file and deletes it when closed.
type deleteOnCloseReader struct {
	*os.File
	path string
}

func (r *deleteOnCloseReader) Close() error {
	err := r.File.Close()
	os.Remove(r.path)
	return err
}
