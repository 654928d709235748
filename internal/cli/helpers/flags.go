// Package helpers holds flag definitions shared by hxgrep commands.
package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/output"
	"github.com/coral-mesh/hxgrep/internal/render"
)

// Formats lists the supported output formats.
var Formats = []output.Format{
	output.FormatHex,
	output.FormatJSON,
	output.FormatCSV,
	output.FormatPlain,
}

// LogLevels lists the accepted --log-level values.
var LogLevels = []string{"trace", "debug", "info", "warn", "error", "off"}

// AddFormatFlag adds a standard --format/-o flag to a command.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, defaultFormat output.Format, supportedFormats []output.Format) {
	formatNames := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		formatNames[i] = string(f)
	}

	description := fmt.Sprintf("Output format (%s)", strings.Join(formatNames, ", "))
	cmd.Flags().StringVarP(formatVar, "format", "o", string(defaultFormat), description)

	// Add shell completion for format flag.
	errors.Must(cmd.RegisterFlagCompletionFunc("format", fixedCompletion(formatNames)), "register format completion")
}

// AddColorFlag adds a standard --color flag.
func AddColorFlag(cmd *cobra.Command, colorVar *string, defaultMode render.ColorMode) {
	modes := []string{string(render.ColorAuto), string(render.ColorAlways), string(render.ColorNever)}
	cmd.Flags().StringVar(colorVar, "color", string(defaultMode),
		fmt.Sprintf("Highlight offsets and matches (%s)", strings.Join(modes, ", ")))
	errors.Must(cmd.RegisterFlagCompletionFunc("color", fixedCompletion(modes)), "register color completion")
}

// AddLogLevelFlag adds a standard --log-level flag. Logs go to stderr.
func AddLogLevelFlag(cmd *cobra.Command, levelVar *string, defaultLevel string) {
	cmd.Flags().StringVar(levelVar, "log-level", defaultLevel,
		fmt.Sprintf("Diagnostic log level on stderr (%s)", strings.Join(LogLevels, ", ")))
	errors.Must(cmd.RegisterFlagCompletionFunc("log-level", fixedCompletion(LogLevels)), "register log level completion")
}

// AddSeparatorFlag adds a standard --separator/-t flag.
func AddSeparatorFlag(cmd *cobra.Command, sepVar *string, defaultSep string) {
	cmd.Flags().StringVarP(sepVar, "separator", "t", defaultSep, "Separator between hex bytes")
}

func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
