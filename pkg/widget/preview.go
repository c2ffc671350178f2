package widget

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/vango-dev/filebridge/pkg/upload"
)

// URLPreviewer hands out opaque preview URLs and tracks which are still
// live, the way a browser tracks object URLs.
type URLPreviewer struct {
	// Scheme prefixes every URL. Defaults to "preview".
	Scheme string

	mu   sync.Mutex
	live map[Preview]*upload.File
}

// NewURLPreviewer returns an empty previewer.
func NewURLPreviewer() *URLPreviewer {
	return &URLPreviewer{Scheme: "preview", live: make(map[Preview]*upload.File)}
}

// Allocate mints a URL for f.
func (p *URLPreviewer) Allocate(f *upload.File) (Preview, error) {
	if f == nil {
		return "", ErrNoFile
	}
	scheme := p.Scheme
	if scheme == "" {
		scheme = "preview"
	}
	ref := Preview(fmt.Sprintf("%s://%s/%s", scheme, uuid.NewString(), url.PathEscape(f.Filename)))

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.live == nil {
		p.live = make(map[Preview]*upload.File)
	}
	p.live[ref] = f
	return ref, nil
}

// Release forgets ref.
func (p *URLPreviewer) Release(ref Preview) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.live, ref)
}

// Resolve returns the file behind a live URL.
func (p *URLPreviewer) Resolve(ref Preview) (*upload.File, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.live[ref]
	return f, ok
}

// Outstanding returns the number of URLs not yet released.
func (p *URLPreviewer) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}
