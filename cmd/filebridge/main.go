package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fberrors "github.com/vango-dev/filebridge/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬┬  ┌─┐┌┐ ┬─┐┬┌┬┐┌─┐┌─┐
  ├┤ ││  ├┤ ├┴┐├┬┘│ │││ ┬├┤
  └  ┴┴─┘└─┘└─┘┴└─┴─┴┘└─┘└─┘
`

func main() {
	if err := rootCmd().Execute(); err != nil {
		var be *fberrors.BridgeError
		if errors.As(err, &be) {
			fberrors.Fprint(os.Stderr, be)
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filebridge",
		Short: "File uploads for query RPC endpoints",
		Long: `filebridge carries file uploads through a query RPC protocol.

Clients send operations whose variables hold files as
multipart/form-data; the server rebuilds the nested operation and
hands it to the protocol handler with the files attached:

  • Bracket-path field names (data[variables][post][image])
  • Files spooled to disk or S3, never held in memory
  • Structured JSON errors with stable codes
  • Prometheus metrics and OpenTelemetry tracing`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		serveCmd(),
		sendCmd(),
		flattenCmd(),
		codesCmd(),
		schemaCmd(),
		versionCmd(),
	)
	return cmd
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
