// Package cli implements the hxgrep command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/output"
	"github.com/coral-mesh/hxgrep/pkg/version"
)

// NewRootCmd builds the hxgrep command tree.
func NewRootCmd() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "hxgrep [file|-] [flags]",
		Short: "hxgrep - hex dump and binary pattern search",
		Long: `Dump binary files as hexadecimal or search them for byte patterns.

Without --regex the input is dumped as fixed-width hex lines. With --regex
every non-overlapping match is printed at its offset, followed by the bytes
that come after it up to the line width.

Patterns use byte regular expressions: \xHH literals, [\x00-\x1F] classes,
'.' for any byte, *, +, ? and {m,n} repetition (lazy with a trailing ?), and
the ^ and $ anchors. Groups and alternation are not supported.

Examples:
  hxgrep disk.img -n 4
  hxgrep disk.img -e '\x4D\x5A\x90\x00' -p
  cat dump.bin | hxgrep - -e '\xFF\xD8\xFF' -o json
  hxgrep -m 'images/**/*.bin' -e '\x7F\x45\x4C\x46' --global-limit 100

Configuration is read from ~/.hxgrep/config.yaml (or --config, or
HXGREP_CONFIG), then HXGREP_* environment variables, then flags.`,
		Version:       version.String(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, flags, args)
		},
	}
	flags.register(cmd)

	cmd.AddCommand(newRevertCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of structured output records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := output.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "hxgrep version %s\n", version.Version)
			_, _ = fmt.Fprintf(out, "Git commit: %s\n", version.GitCommit)
			_, _ = fmt.Fprintf(out, "Build date: %s\n", version.BuildDate)
			_, _ = fmt.Fprintf(out, "Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return errors.KindOf(err).ExitCode()
}
