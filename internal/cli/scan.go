package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/hxgrep/internal/cli/helpers"
	"github.com/coral-mesh/hxgrep/internal/config"
	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/logging"
	"github.com/coral-mesh/hxgrep/internal/multifile"
	"github.com/coral-mesh/hxgrep/internal/output"
	"github.com/coral-mesh/hxgrep/internal/pattern"
	"github.com/coral-mesh/hxgrep/internal/progress"
	"github.com/coral-mesh/hxgrep/internal/render"
	"github.com/coral-mesh/hxgrep/internal/scan"
	"github.com/coral-mesh/hxgrep/internal/source"
)

// scanFlags holds the root command flags. Flags that mirror config values
// override the config file and environment only when set explicitly.
type scanFlags struct {
	configPath string

	regex       string
	lines       int
	position    int64
	multi       bool
	globalLimit int

	width          int
	separator      string
	hideOffset     bool
	parallel       bool
	workers        int
	chunkSize      config.ByteSize
	overlapCap     int
	matchCap       config.ByteSize
	maxFileSize    config.ByteSize
	followSymlinks bool
	format         string
	progress       bool
	color          string
	logLevel       string
}

func (f *scanFlags) register(cmd *cobra.Command) {
	def := config.Default()
	f.chunkSize = def.Scan.ChunkSize
	f.matchCap = def.Scan.MatchCap
	f.maxFileSize = def.Limits.MaxFileSize

	flags := cmd.Flags()
	flags.StringVarP(&f.regex, "regex", "e", "", "Search for a hex pattern instead of dumping")
	flags.IntVarP(&f.lines, "line", "n", 0, "Maximum lines to output per file (0 = unlimited)")
	flags.Int64VarP(&f.position, "position", "s", 0, "Byte offset to start from")
	flags.BoolVarP(&f.multi, "multi", "m", false, "Treat the arguments as glob patterns and scan every matching file")
	flags.IntVar(&f.globalLimit, "global-limit", 0, "Maximum lines to output across all files (0 = unlimited)")

	flags.IntVarP(&f.width, "width", "w", def.Scan.Width, "Bytes per line")
	helpers.AddSeparatorFlag(cmd, &f.separator, def.Output.Separator)
	flags.BoolVar(&f.hideOffset, "hideoffset", def.Output.HideOffset, "Omit the offset column")
	flags.BoolVarP(&f.parallel, "parallel", "p", def.Scan.Parallel, "Scan chunks in parallel")
	flags.IntVarP(&f.workers, "workers", "j", def.Scan.Workers, "Parallel workers (0 = one per CPU)")
	flags.Var(&f.chunkSize, "chunk-size", "Read and parallel chunk size (e.g. 1M, 256K)")
	flags.IntVar(&f.overlapCap, "overlap-cap", def.Scan.OverlapCap, "Maximum read-ahead past each parallel chunk")
	flags.Var(&f.matchCap, "match-cap", "Maximum bytes kept per match")
	flags.Var(&f.maxFileSize, "max-file-size", "Reject larger input files")
	flags.BoolVar(&f.followSymlinks, "follow-symlinks", def.Limits.FollowSymlinks, "Allow inputs that are symlinks")
	helpers.AddFormatFlag(cmd, &f.format, output.Format(def.Output.Format), helpers.Formats)
	flags.BoolVar(&f.progress, "progress", def.Output.Progress, "Show a progress line on stderr")
	helpers.AddColorFlag(cmd, &f.color, render.ColorMode(def.Output.Color))
	flags.StringVar(&f.configPath, "config", "", "Config file (default ~/.hxgrep/config.yaml)")
	helpers.AddLogLevelFlag(cmd, &f.logLevel, def.Log.Level)
}

// apply overlays explicitly set flags on cfg.
func (f *scanFlags) apply(flags *pflag.FlagSet, cfg *config.Config) {
	overrides := map[string]func(){
		"width":           func() { cfg.Scan.Width = f.width },
		"separator":       func() { cfg.Output.Separator = f.separator },
		"hideoffset":      func() { cfg.Output.HideOffset = f.hideOffset },
		"parallel":        func() { cfg.Scan.Parallel = f.parallel },
		"workers":         func() { cfg.Scan.Workers = f.workers },
		"chunk-size":      func() { cfg.Scan.ChunkSize = f.chunkSize },
		"overlap-cap":     func() { cfg.Scan.OverlapCap = f.overlapCap },
		"match-cap":       func() { cfg.Scan.MatchCap = f.matchCap },
		"max-file-size":   func() { cfg.Limits.MaxFileSize = f.maxFileSize },
		"follow-symlinks": func() { cfg.Limits.FollowSymlinks = f.followSymlinks },
		"format":          func() { cfg.Output.Format = f.format },
		"progress":        func() { cfg.Output.Progress = f.progress },
		"color":           func() { cfg.Output.Color = f.color },
		"log-level":       func() { cfg.Log.Level = f.logLevel },
	}
	flags.Visit(func(flag *pflag.Flag) {
		if set, ok := overrides[flag.Name]; ok {
			set()
		}
	})
	// Selecting a worker count implies parallel scanning.
	if flags.Changed("workers") && f.workers > 0 {
		cfg.Scan.Parallel = true
	}
}

func (f *scanFlags) validate(args []string) error {
	switch {
	case len(args) == 0:
		return &errors.ConfigError{Field: "input", Msg: "missing file path (use - for standard input)"}
	case len(args) > 1 && !f.multi:
		return &errors.ConfigError{Field: "input", Value: args, Msg: "only one file is accepted without --multi"}
	case f.lines < 0:
		return &errors.ConfigError{Field: "line count", Value: f.lines, Msg: "must not be negative"}
	case f.globalLimit < 0:
		return &errors.ConfigError{Field: "global limit", Value: f.globalLimit, Msg: "must not be negative"}
	case f.position < 0:
		return &errors.ConfigError{Field: "position", Value: f.position, Msg: "must not be negative"}
	case f.globalLimit > 0 && !f.multi:
		return &errors.ConfigError{Field: "global limit", Value: f.globalLimit, Msg: "requires --multi"}
	}
	if f.multi {
		for _, arg := range args {
			if arg == "-" {
				return &errors.ConfigError{Field: "input", Value: arg, Msg: "standard input cannot be used with --multi"}
			}
		}
	}
	return nil
}

// scanner scans inputs into one sink.
type scanner struct {
	cfg      *config.Config
	matcher  *pattern.Matcher
	sink     output.Sink
	position int64
	stdin    io.Reader
	progress io.Writer
	logger   zerolog.Logger
}

func runScan(cmd *cobra.Command, f *scanFlags, args []string) error {
	if err := f.validate(args); err != nil {
		return err
	}

	cfg, err := config.NewLoader(f.configPath).Load()
	if err != nil {
		return err
	}
	f.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewWithComponent(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	}, "scan")

	s := &scanner{
		cfg:      cfg,
		position: f.position,
		stdin:    cmd.InOrStdin(),
		logger:   logger,
	}
	if f.regex != "" {
		if s.matcher, err = pattern.Compile(f.regex); err != nil {
			return err
		}
	}
	if progress.Enabled(cfg.Output.Progress, cmd.ErrOrStderr()) {
		s.progress = cmd.ErrOrStderr()
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	color, err := render.ParseColorMode(cfg.Output.Color)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	s.sink, err = output.NewSink(format, out, render.Config{
		Width:      cfg.Scan.Width,
		Separator:  cfg.Output.Separator,
		ShowOffset: !cfg.Output.HideOffset,
		Color:      color,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if f.multi {
		err = s.scanGlobs(ctx, args, f, format, out)
	} else {
		_, err = s.scanPath(ctx, args[0], f.lines)
	}
	if cerr := s.sink.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *scanner) scanGlobs(ctx context.Context, globs []string, f *scanFlags, format output.Format, out io.Writer) error {
	paths, err := multifile.Expand(globs...)
	if err != nil {
		return &errors.ConfigError{Field: "glob", Value: globs, Msg: err.Error()}
	}
	if len(paths) == 0 {
		return &errors.ConfigError{Field: "glob", Value: globs, Msg: "matches no files"}
	}

	opts := multifile.Options{
		PerFile:     f.lines,
		GlobalLimit: f.globalLimit,
		Logger:      s.logger,
	}
	// Banners would corrupt structured output.
	if format == output.FormatHex {
		opts.Headers = out
	}
	sum, err := multifile.Run(ctx, paths, opts, s.scanPath)
	s.logger.Debug().
		Int("files", sum.Files).
		Int("lines", sum.Lines).
		Bool("limit_reached", sum.LimitReached).
		Msg("Multi-file scan finished")
	return err
}

// scanPath scans one input into the sink and returns the lines written.
func (s *scanner) scanPath(ctx context.Context, path string, budget int) (int, error) {
	src, err := s.open(path)
	if err != nil {
		return 0, err
	}
	defer errors.DeferClose(s.logger, src, "Failed to close input")

	size, known := src.Size()
	s.sink.Begin(path, size, known, budget)

	opts := scan.Options{
		Origin:     s.position,
		ChunkSize:  int(s.cfg.Scan.ChunkSize),
		OverlapCap: s.cfg.Scan.OverlapCap,
		MatchCap:   int(s.cfg.Scan.MatchCap),
		Width:      s.cfg.Scan.Width,
		Workers:    s.cfg.EffectiveWorkers(),
		Logger:     s.logger,
	}
	if s.progress != nil {
		ind := progress.New(s.progress, max(size-s.position, 0))
		opts.Progress = ind.Add
		ind.Start()
		defer ind.Finish()
	}

	if s.matcher != nil {
		results, err := scan.Search(ctx, s.matcher, src, opts)
		if err != nil {
			return 0, err
		}
		return output.WriteMatches(s.sink, results)
	}
	blocks, err := scan.Dump(ctx, src, opts)
	if err != nil {
		return 0, err
	}
	return output.WriteBlocks(s.sink, blocks)
}

func (s *scanner) open(path string) (source.Source, error) {
	if path == "-" {
		return source.NewStream(path, io.NopCloser(s.stdin)), nil
	}
	return source.Open(path, source.Options{
		MaxFileSize:    int64(s.cfg.Limits.MaxFileSize),
		FollowSymlinks: s.cfg.Limits.FollowSymlinks,
	})
}
