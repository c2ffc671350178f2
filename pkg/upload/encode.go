package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Encoder writes fields as a multipart/form-data body.
type Encoder struct {
	// Boundary overrides the random boundary. Used by tests.
	Boundary string
}

// Encode returns a streaming multipart body and its content type. The body
// is produced on a goroutine as the caller reads it, so file contents go
// straight from each handle to the reader without being buffered.
//
// Every file handle in fields is closed once written, or when the reader is
// closed before the body is complete.
func (e Encoder) Encode(fields []Field) (io.ReadCloser, string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	if e.Boundary != "" {
		if err := mw.SetBoundary(e.Boundary); err != nil {
			return nil, "", fmt.Errorf("upload: %w", err)
		}
	}
	contentType := mw.FormDataContentType()

	go func() {
		err := writeFields(mw, fields)
		if err == nil {
			err = mw.Close()
		}
		closeFiles(fields)
		pw.CloseWithError(err)
	}()

	return pr, contentType, nil
}

func writeFields(mw *multipart.Writer, fields []Field) error {
	for _, field := range fields {
		if field.File == nil {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(field.Name)))
			w, err := mw.CreatePart(h)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, field.Text); err != nil {
				return err
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(field.Name), escapeQuotes(field.File.Filename)))
		contentType := field.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		w, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, field.File); err != nil {
			return fmt.Errorf("upload: write file part %q: %w", field.Name, err)
		}
		if err := field.File.Close(); err != nil {
			return err
		}
	}
	return nil
}

func closeFiles(fields []Field) {
	for _, field := range fields {
		if field.File != nil {
			field.File.Close()
		}
	}
}

// quoteEscaper escapes a Content-Disposition parameter. Line breaks are
// percent-encoded the way browsers encode form-data names so they cannot
// end the header.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"", "\r", "%0D", "\n", "%0A")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
