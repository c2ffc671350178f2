package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	fberrors "github.com/vango-dev/filebridge/internal/errors"
	"github.com/vango-dev/filebridge/pkg/bridge"
	"github.com/vango-dev/filebridge/pkg/payload"
)

// echoFile describes one file the echo handler consumed.
type echoFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Read        int64  `json:"read"`
	Human       string `json:"human"`
}

type echoResult struct {
	OperationName string        `json:"operationName,omitempty"`
	Query         string        `json:"query,omitempty"`
	Variables     payload.Value `json:"variables"`
	Multipart     bool          `json:"multipart"`
	Files         []echoFile    `json:"files"`
}

// echoHandler is the protocol handler `filebridge serve` mounts behind the
// bridge. It drains every uploaded file and answers with what it received,
// which makes the server usable for end-to-end checks of a client.
func echoHandler(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, multipart := bridge.OperationFromContext(r.Context())
		if !multipart {
			data, err := io.ReadAll(r.Body)
			if err != nil {
				writeEchoError(w, fberrors.New("FB100").Wrap(err))
				return
			}
			v, err := payload.FromJSON(data)
			if err != nil {
				writeEchoError(w, fberrors.New("FB120").Wrap(err).
					WithDetail("The request body is neither multipart nor a JSON operation."))
				return
			}
			if op, err = payload.OperationFromValue(v); err != nil {
				writeEchoError(w, fberrors.Describe(err))
				return
			}
		}

		result := echoResult{
			OperationName: op.OperationName,
			Query:         op.Query,
			Variables:     op.Variables,
			Multipart:     multipart,
			Files:         []echoFile{},
		}
		for _, f := range op.Files() {
			n, err := io.Copy(io.Discard, f)
			f.Close()
			if err != nil {
				writeEchoError(w, fberrors.Describe(err).WithDetail("Reading "+f.Filename+" failed."))
				return
			}
			result.Files = append(result.Files, echoFile{
				Filename:    f.Filename,
				ContentType: f.ContentType,
				Size:        f.Size,
				Read:        n,
				Human:       humanize.Bytes(uint64(n)),
			})
			logger.Info("consumed upload", "filename", f.Filename, "size", humanize.Bytes(uint64(n)))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": result})
	})
}

func writeEchoError(w http.ResponseWriter, be *fberrors.BridgeError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(be.Status)
	_ = be.WriteJSON(w)
}
