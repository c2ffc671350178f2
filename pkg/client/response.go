package client

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a non-JSON error body is kept.
const maxErrorBody = 4096

// Response is a decoded protocol response.
type Response struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// ResponseError is one entry of a response's errors list.
type ResponseError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code, or "" when absent.
func (e ResponseError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// Path returns extensions.path, or "" when absent.
func (e ResponseError) Path() string {
	path, _ := e.Extensions["path"].(string)
	return path
}

// HTTPError is returned for responses with a status of 400 or above.
// Response is set when the body was a JSON error document.
type HTTPError struct {
	Status   int
	Body     string
	Response *Response
}

func (e *HTTPError) Error() string {
	if e.Response != nil && len(e.Response.Errors) > 0 {
		first := e.Response.Errors[0]
		if code := first.Code(); code != "" {
			return fmt.Sprintf("client: server returned %d: %s: %s", e.Status, code, first.Message)
		}
		return fmt.Sprintf("client: server returned %d: %s", e.Status, first.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("client: server returned %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("client: server returned %d", e.Status)
}

func readResponse(resp *http.Response) (*Response, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}

	var out Response
	jsonBody := isJSON(resp.Header.Get("Content-Type")) && json.Unmarshal(data, &out) == nil
	out.Status = resp.StatusCode

	if resp.StatusCode >= http.StatusBadRequest {
		herr := &HTTPError{Status: resp.StatusCode}
		if jsonBody {
			herr.Response = &out
		} else {
			herr.Body = strings.TrimSpace(truncate(string(data), maxErrorBody))
		}
		return nil, herr
	}
	if !jsonBody {
		return nil, fmt.Errorf("client: response is not JSON (status %d, content type %q)",
			resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	return &out, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
