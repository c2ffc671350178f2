package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/vango-dev/filebridge/pkg/upload"
)

func newStore(t *testing.T) *upload.DiskStore {
	t.Helper()
	store, err := upload.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	return store
}

func buildBody(t *testing.T, build func(w *multipart.Writer)) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	build(w)
	if err := w.Close(); err != nil {
		t.Fatalf("writer.Close: %v", err)
	}
	return &buf, w.Boundary()
}

func TestParse_TextAndFileParts(t *testing.T) {
	store := newStore(t)
	body, boundary := buildBody(t, func(w *multipart.Writer) {
		fw, err := w.CreateFormFile("data[variables][post][image]", "a.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte("PNGDATA"))
		w.WriteField("data[variables][post][title]", `"hi"`)
	})

	form, err := upload.Parse(context.Background(), body, boundary, upload.ParseOptions{Store: store})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer form.Close()

	if len(form.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(form.Fields))
	}
	title, ok := form.Value("data[variables][post][title]")
	if !ok || title != `"hi"` {
		t.Errorf("title = %q, %v", title, ok)
	}

	files := form.Files()
	if len(files) != 1 {
		t.Fatalf("len(Files) = %d, want 1", len(files))
	}
	f := files[0]
	if f.Filename != "a.png" || f.Size != 7 {
		t.Errorf("file = %s", f)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "PNGDATA" {
		t.Errorf("file content = %q", data)
	}
}

func TestParse_FileIsSpooledNotBuffered(t *testing.T) {
	store := newStore(t)
	body, boundary := buildBody(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormFile("f", "big.bin")
		fw.Write(bytes.Repeat([]byte("x"), 1<<16))
	})

	form, err := upload.Parse(context.Background(), body, boundary, upload.ParseOptions{Store: store})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer form.Close()

	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 1 {
		t.Fatalf("spool entries = %d, want 1", len(entries))
	}
	if form.Files()[0].ID != entries[0].Name() {
		t.Errorf("file ID %q does not match spool entry %q", form.Files()[0].ID, entries[0].Name())
	}
}

func TestParse_MissingClosingBoundary(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ends inside last part", "--b\r\nContent-Disposition: form-data; name=\"data[query]\"\r\n\r\n\"{ ping }\"\r\n"},
		{"ends after delimiter line", "--b\r\nContent-Disposition: form-data; name=\"data[query]\"\r\n\r\n\"{ ping }\"\r\n--b\r\n"},
		{"only a delimiter line", "--b\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			form, err := upload.Parse(context.Background(), strings.NewReader(tt.body), "b", upload.ParseOptions{Store: store})
			var fe *upload.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("Parse = %+v, %v, want *FormatError", form, err)
			}
			if fe.Offset <= 0 {
				t.Errorf("Offset = %d, want > 0", fe.Offset)
			}
		})
	}
}

func TestParse_CloseDelimiterVariants(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		parts int
	}{
		{"no parts", "--b--", 0},
		{"no parts with CRLF", "--b--\r\n", 0},
		{"epilogue", "--b\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nx\r\n--b--\r\ntrailing text", 1},
		{"large epilogue", "--b\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nx\r\n--b--\r\n" + strings.Repeat("e", 64<<10), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := upload.Parse(context.Background(), strings.NewReader(tt.body), "b", upload.ParseOptions{Store: newStore(t)})
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(form.Fields) != tt.parts {
				t.Errorf("len(Fields) = %d, want %d", len(form.Fields), tt.parts)
			}
		})
	}
}

func TestParse_LargeFileThenClose(t *testing.T) {
	store := newStore(t)
	body, boundary := buildBody(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormFile("f", "big.bin")
		fw.Write(bytes.Repeat([]byte("z"), 100<<10))
	})

	form, err := upload.Parse(context.Background(), body, boundary, upload.ParseOptions{Store: store})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer form.Close()
	if n := len(form.Files()); n != 1 {
		t.Errorf("files = %d, want 1", n)
	}
}

func TestParse_TruncatedFilePartReleasesSpool(t *testing.T) {
	store := newStore(t)
	body := "--b\r\nContent-Disposition: form-data; name=\"a\"; filename=\"a.txt\"\r\n\r\nfirst\r\n" +
		"--b\r\nContent-Disposition: form-data; name=\"b\"; filename=\"b.txt\"\r\n\r\ntrunc"

	_, err := upload.Parse(context.Background(), strings.NewReader(body), "b", upload.ParseOptions{Store: store})
	var fe *upload.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Parse error = %v, want *FormatError", err)
	}
	if fe.Field != "b" {
		t.Errorf("Field = %q, want b", fe.Field)
	}

	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 0 {
		t.Errorf("spool entries after failure = %d, want 0", len(entries))
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"no boundary in body", "just some text"},
		{"part without name", "--b\r\nContent-Disposition: form-data\r\n\r\nx\r\n--b--\r\n"},
		{"ends after delimiter", "--b\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nx\r\n--b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := upload.Parse(context.Background(), strings.NewReader(tt.body), "b", upload.ParseOptions{Store: newStore(t)})
			var fe *upload.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("Parse error = %v, want *FormatError", err)
			}
		})
	}
}

func TestParse_MaxFieldBytes(t *testing.T) {
	body, boundary := buildBody(t, func(w *multipart.Writer) {
		w.WriteField("a", "0123456789")
	})
	_, err := upload.Parse(context.Background(), body, boundary, upload.ParseOptions{Store: newStore(t), MaxFieldBytes: 4})
	var fe *upload.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Parse error = %v, want *FormatError", err)
	}
}

func TestParse_CanceledContext(t *testing.T) {
	store := newStore(t)
	body, boundary := buildBody(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormFile("a", "a.txt")
		fw.Write([]byte("data"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := upload.Parse(ctx, body, boundary, upload.ParseOptions{Store: store})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Parse error = %v, want context.Canceled", err)
	}
	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 0 {
		t.Errorf("spool entries after cancel = %d, want 0", len(entries))
	}
}

func TestParse_RequiresStore(t *testing.T) {
	if _, err := upload.Parse(context.Background(), strings.NewReader(""), "b", upload.ParseOptions{}); err == nil {
		t.Fatal("expected error without Store")
	}
}

func TestParseRequest_ContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"missing boundary", "multipart/form-data"},
		{"not multipart", "application/json"},
		{"garbage", ";;;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader("x"))
			req.Header.Set("Content-Type", tt.contentType)
			_, err := upload.ParseRequest(context.Background(), req, upload.ParseOptions{Store: newStore(t)})
			var fe *upload.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("ParseRequest error = %v, want *FormatError", err)
			}
		})
	}
}

func TestIsMultipart(t *testing.T) {
	tests := map[string]bool{
		"multipart/form-data; boundary=x": true,
		"Multipart/Form-Data; boundary=x": true,
		"application/json":                false,
		"":                                false,
	}
	for ct, want := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Content-Type", ct)
		if got := upload.IsMultipart(req); got != want {
			t.Errorf("IsMultipart(%q) = %v, want %v", ct, got, want)
		}
	}
}

type brokenStore struct{ upload.Store }

func (brokenStore) Save(_ context.Context, _, _ string, r io.Reader) (string, int64, error) {
	io.Copy(io.Discard, r)
	return "", 0, errors.New("disk full")
}

func TestParse_StoreFailureIsSpoolError(t *testing.T) {
	body, boundary := buildBody(t, func(w *multipart.Writer) {
		fw, _ := w.CreateFormFile("data[variables][file]", "a.txt")
		fw.Write([]byte("hello"))
	})

	_, err := upload.Parse(context.Background(), body, boundary, upload.ParseOptions{Store: brokenStore{}})
	var spoolErr *upload.SpoolError
	if !errors.As(err, &spoolErr) {
		t.Fatalf("Parse error = %v, want *SpoolError", err)
	}
	if spoolErr.Field != "data[variables][file]" {
		t.Errorf("Field = %q", spoolErr.Field)
	}
	var formatErr *upload.FormatError
	if errors.As(err, &formatErr) {
		t.Error("store failure must not be reported as a format error")
	}
}
