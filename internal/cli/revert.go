package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/hxgrep/internal/cli/helpers"
	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/logging"
	"github.com/coral-mesh/hxgrep/internal/render"
	"github.com/coral-mesh/hxgrep/internal/source"
)

func newRevertCmd() *cobra.Command {
	var (
		separator string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "revert [file|-]",
		Short: "Rebuild raw bytes from a hex dump",
		Long: `Read lines produced by hxgrep in hex format and write the bytes they
encode. Offset columns, blank lines and multi-file banners are skipped. The
separator must match the one the dump was written with.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runRevert(cmd, path, separator, outPath)
		},
	}

	helpers.AddSeparatorFlag(cmd, &separator, " ")
	cmd.Flags().StringVar(&outPath, "out", "", "Write bytes to this file instead of stdout")

	return cmd
}

func runRevert(cmd *cobra.Command, path, separator, outPath string) (err error) {
	logger := logging.NewWithComponent(logging.Config{Level: "warn", Output: cmd.ErrOrStderr()}, "revert")

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		src, err := source.OpenFile(path, source.Options{})
		if err != nil {
			return err
		}
		defer errors.DeferClose(logger, src, "Failed to close input")
		in = src
	}

	out := cmd.OutOrStdout()
	if outPath != "" {
		f, cerr := os.Create(outPath) // #nosec G304 -- output path chosen by the user
		if cerr != nil {
			return &errors.IOError{Op: "create", Path: outPath, Err: cerr}
		}
		defer errors.CloseInto(&err, f)
		out = f
	}

	n, err := render.Revert(in, out, separator)
	if err != nil {
		return err
	}
	logger.Debug().Int64("bytes", n).Msg("Dump reverted")
	return nil
}
