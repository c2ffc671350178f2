package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	fberrors "github.com/vango-dev/filebridge/internal/errors"
	"github.com/vango-dev/filebridge/pkg/client"
)

func sendCmd() *cobra.Command {
	var (
		op         operationFlags
		configPath string
		endpoint   string
		headers    []string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an operation, uploading files from disk",
		Long: `Send an operation to a protocol endpoint.

Variables are given as JSON; files are attached to a variable path
with --file. When any file is attached the operation is sent as
multipart/form-data, otherwise as JSON.

Examples:
  filebridge send -q 'mutation ($img: File!) { setAvatar(image: $img) }' \
    --file img=./cat.png
  filebridge send --query-file=create.graphql \
    -v '{"post":{"title":"hi"}}' \
    --file post.attachments=./a.pdf --file post.attachments=./b.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if endpoint == "" {
				endpoint = cfg.Client.Endpoint
			}
			if timeout == 0 {
				timeout = cfg.ClientTimeout()
			}

			operation, err := op.build()
			if err != nil {
				return err
			}

			opts := []client.Option{
				client.WithHTTPClient(&http.Client{Timeout: timeout}),
				client.WithPayloadKey(op.payloadKey),
			}
			for _, h := range headers {
				key, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q (want \"Key: Value\")", h)
				}
				opts = append(opts, client.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
			}

			return runSend(cmd.Context(), client.New(endpoint, opts...), operation)
		},
	}

	op.bind(cmd)
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to filebridge.json")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "Endpoint URL (default from filebridge.json)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra request header, \"Key: Value\"")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (default from filebridge.json)")

	return cmd
}

func runSend(ctx context.Context, c *client.Client, op client.Operation) error {
	files := op.Files()
	if len(files) > 0 {
		var total int64
		for _, f := range files {
			if f.Size > 0 {
				total += f.Size
			}
		}
		info("Uploading %d file(s), %s, to %s", len(files), humanize.Bytes(uint64(total)), c.Endpoint())
	} else {
		info("Sending to %s", c.Endpoint())
	}

	start := time.Now()
	resp, err := c.Do(ctx, op)
	if err != nil {
		var herr *client.HTTPError
		if errors.As(err, &herr) && herr.Response != nil {
			for _, e := range herr.Response.Errors {
				if path := e.Path(); path != "" {
					errorMsg("%s %s (at %s)", e.Code(), e.Message, path)
				} else {
					errorMsg("%s %s", e.Code(), e.Message)
				}
			}
		}
		return fberrors.New("FB161").Wrap(err)
	}

	success("HTTP %d in %s", resp.Status, time.Since(start).Round(time.Millisecond))
	for _, e := range resp.Errors {
		warn("%s", e.Message)
	}
	if len(resp.Data) > 0 {
		var out bytes.Buffer
		if err := json.Indent(&out, resp.Data, "", "  "); err != nil {
			out.Write(resp.Data)
		}
		fmt.Println(out.String())
	}
	return nil
}
