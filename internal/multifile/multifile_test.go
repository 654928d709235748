package multifile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hxgrep/internal/testutil"
)

func makeTree(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range []string{"a.bin", "b.bin", "c.txt", "sub/d.bin", "sub/deep/e.bin", "sub/deep/f.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.bin"), 0o755))
	return dir
}

func TestExpand(t *testing.T) {
	dir := makeTree(t)
	rel := func(paths []string) []string {
		var out []string
		for _, p := range paths {
			r, err := filepath.Rel(dir, p)
			require.NoError(t, err)
			out = append(out, filepath.ToSlash(r))
		}
		return out
	}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{name: "flat glob skips directories", patterns: []string{"*.bin"}, want: []string{"a.bin", "b.bin"}},
		{name: "recursive", patterns: []string{"**/*.bin"}, want: []string{"a.bin", "b.bin", "sub/d.bin", "sub/deep/e.bin"}},
		{name: "recursive under prefix", patterns: []string{"sub/**/*.txt"}, want: []string{"sub/deep/f.txt"}},
		{name: "everything below", patterns: []string{"sub/**"}, want: []string{"sub/d.bin", "sub/deep/e.bin", "sub/deep/f.txt"}},
		{name: "duplicates removed", patterns: []string{"a.bin", "*.bin"}, want: []string{"a.bin", "b.bin"}},
		{name: "no match", patterns: []string{"*.none"}, want: nil},
		{name: "missing root", patterns: []string{"missing/**/*.bin"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var patterns []string
			for _, p := range tt.patterns {
				patterns = append(patterns, filepath.Join(dir, p))
			}
			got, err := Expand(patterns...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel(got))
		})
	}

	_, err := Expand(filepath.Join(dir, "[.bin"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	paths := []string{"one", "two", "three"}
	lines := map[string]int{"one": 3, "two": 5, "three": 2}

	scanFn := func(budgets *[]int) ScanFunc {
		return func(_ context.Context, path string, budget int) (int, error) {
			*budgets = append(*budgets, budget)
			n := lines[path]
			if budget > 0 && n > budget {
				n = budget
			}
			return n, nil
		}
	}

	tests := []struct {
		name        string
		opts        Options
		wantLines   int
		wantFiles   int
		wantBudgets []int
		wantLimit   bool
	}{
		{name: "unbounded", wantLines: 10, wantFiles: 3, wantBudgets: []int{0, 0, 0}},
		{name: "per file", opts: Options{PerFile: 2}, wantLines: 6, wantFiles: 3, wantBudgets: []int{2, 2, 2}},
		{name: "global", opts: Options{GlobalLimit: 6}, wantLines: 6, wantFiles: 2, wantBudgets: []int{6, 3}, wantLimit: true},
		{name: "both", opts: Options{PerFile: 4, GlobalLimit: 5}, wantLines: 5, wantFiles: 2, wantBudgets: []int{4, 2}, wantLimit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var budgets []int
			var headers bytes.Buffer
			tt.opts.Headers = &headers
			tt.opts.Logger = testutil.NewTestLogger(t)

			sum, err := Run(context.Background(), paths, tt.opts, scanFn(&budgets))
			require.NoError(t, err)
			assert.Equal(t, tt.wantLines, sum.Lines)
			assert.Equal(t, tt.wantFiles, sum.Files)
			assert.Equal(t, tt.wantLimit, sum.LimitReached)
			assert.Equal(t, tt.wantBudgets, budgets)
			assert.Contains(t, headers.String(), "=== Processing: one ===\n")
			assert.Contains(t, headers.String(), "=== Total matches/lines processed: ")
		})
	}
}

func TestRun_Error(t *testing.T) {
	fail := func(_ context.Context, path string, _ int) (int, error) {
		if path == "bad" {
			return 1, assert.AnError
		}
		return 1, nil
	}

	sum, err := Run(context.Background(), []string{"good", "bad", "never"}, Options{}, fail)
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "bad: ")
	assert.Equal(t, 2, sum.Files)
}
