package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	fberrors "github.com/vango-dev/filebridge/internal/errors"
	"github.com/vango-dev/filebridge/pkg/scalar"
)

func codesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes [code]",
		Short: "List error codes or explain one",
		Long: `List the error codes the bridge answers with, or explain one.

Examples:
  filebridge codes
  filebridge codes FB111`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				code := strings.ToUpper(args[0])
				if _, ok := fberrors.GetTemplate(code); !ok {
					return fmt.Errorf("unknown error code %q", args[0])
				}
				fmt.Print(fberrors.New(code).Format())
				return nil
			}

			for _, code := range fberrors.GetAllCodes() {
				t, _ := fberrors.GetTemplate(code)
				fmt.Printf("  %s  %-10s %3d  %s\n", code, t.Category, t.Status, t.Message)
			}
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the File scalar declaration",
		Long:  `Print the schema text declaring the File scalar, for inclusion in a server schema.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(scalar.NewRegistry(scalar.File).SDL())
		},
	}
}
