// Package multifile expands glob patterns into input files and runs a scan
// over each of them in order, sharing one global line budget.
package multifile

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Expand returns the regular files matched by the glob patterns, in
// lexical order per pattern and without duplicates. A "**" path element
// matches any number of directories.
func Expand(patterns ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range patterns {
		matches, err := glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() || seen[path] {
				continue
			}
			seen[path] = true
			out = append(out, path)
		}
	}
	return out, nil
}

func glob(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}

	// Split at the first "**": walk everything under the prefix and match
	// the remainder against every suffix of the relative path.
	i := strings.Index(pattern, "**")
	root := filepath.Clean(pattern[:i])
	if pattern[:i] == "" {
		root = "."
	}
	rest := strings.TrimPrefix(pattern[i+2:], string(filepath.Separator))
	if _, err := filepath.Match(rest, ""); err != nil {
		return nil, err
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if matchSuffix(rest, rel) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

// matchSuffix reports whether pattern matches rel or any trailing run of
// its path elements.
func matchSuffix(pattern, rel string) bool {
	if pattern == "" {
		return true
	}
	parts := strings.Split(rel, string(filepath.Separator))
	for i := range parts {
		if ok, _ := filepath.Match(pattern, filepath.Join(parts[i:]...)); ok {
			return true
		}
	}
	return false
}

// ScanFunc scans one file, writing at most budget lines (0 means
// unbounded), and returns the number of lines written.
type ScanFunc func(ctx context.Context, path string, budget int) (int, error)

// Options configures Run.
type Options struct {
	// PerFile caps the lines written per file; 0 means unbounded.
	PerFile int
	// GlobalLimit caps the lines written across all files; 0 means
	// unbounded.
	GlobalLimit int
	// Headers, when set, receives the per-file banners and the summary.
	Headers io.Writer
	Logger  zerolog.Logger
}

// Summary describes a completed run.
type Summary struct {
	Files        int
	Lines        int
	LimitReached bool
}

// Run scans paths in order and stops at the first failure or once the
// global limit is reached.
func Run(ctx context.Context, paths []string, opts Options, scan ScanFunc) (Summary, error) {
	var sum Summary
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		budget := opts.PerFile
		if opts.GlobalLimit > 0 {
			remaining := opts.GlobalLimit - sum.Lines
			if budget == 0 || remaining < budget {
				budget = remaining
			}
		}

		banner(opts.Headers, "Processing: %s", path)
		n, err := scan(ctx, path, budget)
		sum.Files++
		sum.Lines += n
		if err != nil {
			return sum, fmt.Errorf("%s: %w", path, err)
		}
		opts.Logger.Debug().
			Str("path", path).
			Int("lines", n).
			Msg("File processed")

		if opts.GlobalLimit > 0 && sum.Lines >= opts.GlobalLimit {
			sum.LimitReached = true
			banner(opts.Headers, "Global limit of %d reached", opts.GlobalLimit)
			break
		}
	}
	banner(opts.Headers, "Total matches/lines processed: %d", sum.Lines)
	return sum, nil
}

func banner(w io.Writer, format string, args ...any) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "=== "+format+" ===\n", args...)
}
