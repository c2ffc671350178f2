package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vango-dev/filebridge/pkg/fieldpath"
	"github.com/vango-dev/filebridge/pkg/payload"
	"github.com/vango-dev/filebridge/pkg/upload"
)

func flattenCmd() *cobra.Command {
	var (
		op       operationFlags
		raw      bool
		boundary string
	)

	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Show the multipart fields an operation is sent as",
		Long: `Flatten an operation into the multipart fields a client sends.

Each line is one part: the bracket-path field name and either the JSON
text of the leaf or the file attached there. With --raw the complete
multipart body is written to stdout instead.

Examples:
  filebridge flatten -q '{ x }' -v '{"post":{"title":"hi"}}' --file post.image=./cat.png
  filebridge flatten --raw --boundary=XYZ --file f=./a.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, err := op.build()
			if err != nil {
				return err
			}
			fields, err := payload.Flatten(operation.Value(), fieldpath.New(op.payloadKey))
			if err != nil {
				return err
			}

			if raw {
				parts, err := payload.Parts(fields)
				if err != nil {
					return err
				}
				body, contentType, err := upload.Encoder{Boundary: boundary}.Encode(parts)
				if err != nil {
					return err
				}
				defer body.Close()
				fmt.Fprintf(os.Stderr, "Content-Type: %s\n\n", contentType)
				_, err = io.Copy(os.Stdout, body)
				return err
			}

			return printFields(os.Stdout, fields)
		},
	}

	op.bind(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Write the multipart body instead of a field list")
	cmd.Flags().StringVar(&boundary, "boundary", "", "Fixed multipart boundary for --raw")

	return cmd
}

func printFields(w io.Writer, fields []payload.Field) error {
	for _, f := range fields {
		name, err := fieldpath.Encode(f.Path)
		if err != nil {
			return err
		}
		if f.IsFile() {
			fmt.Fprintf(w, "%s\t<file %s, %s, %s>\n", name, f.File.Filename, f.File.ContentType, humanize.Bytes(uint64(max(f.File.Size, 0))))
			f.File.Close()
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", name, f.Text)
	}
	return nil
}
