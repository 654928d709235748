package source

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coral-mesh/hxgrep/internal/constants"
	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/safe"
)

// DefaultMaxFileSize is the largest file Open accepts (100 GiB).
const DefaultMaxFileSize = constants.DefaultMaxFileSize

// Options configures Open.
type Options struct {
	// MaxFileSize rejects larger files. Zero means DefaultMaxFileSize.
	MaxFileSize int64
	// FollowSymlinks allows the path to name a symlink.
	FollowSymlinks bool
}

// OpenFunc opens path as a source.
type OpenFunc func(path string, opts Options) (Source, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]OpenFunc{
		".e01":  unsupportedImage("EnCase (E01)"),
		".ex01": unsupportedImage("EnCase (Ex01)"),
		".vmdk": unsupportedImage("VMDK"),
	}
)

// Register installs fn for files whose extension matches ext
// (case-insensitive, with the leading dot).
func Register(ext string, fn OpenFunc) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[strings.ToLower(ext)] = fn
}

// imageOpener returns the opener registered for the extension of path.
func imageOpener(path string) (OpenFunc, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	openersMu.RLock()
	defer openersMu.RUnlock()
	fn, ok := openers[ext]
	return fn, ok
}

// Open opens path. "-" selects standard input. Paths with a registered
// container extension are handed to their opener; everything else is opened
// as a plain file after validation.
func Open(path string, opts Options) (Source, error) {
	if path == "-" {
		return Stdin(), nil
	}
	if fn, ok := imageOpener(path); ok {
		return fn(path, opts)
	}
	return OpenFile(path, opts)
}

// OpenFile opens a regular file as a seekable source.
func OpenFile(path string, opts Options) (*File, error) {
	maxSize := opts.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}
	f, _, err := safe.OpenFile(path, &safe.FileOptions{MaxSize: maxSize, AllowSymlinks: opts.FollowSymlinks})
	if err != nil {
		return nil, &errors.IOError{Op: "open", Path: path, Err: err}
	}
	src, err := NewFile(f)
	if err != nil {
		_ = f.Close()
		return nil, &errors.IOError{Op: "stat", Path: path, Err: err}
	}
	return src, nil
}

func unsupportedImage(format string) OpenFunc {
	return func(path string, _ Options) (Source, error) {
		return nil, &errors.IOError{
			Op:   "open",
			Path: path,
			Err:  fmt.Errorf("%s: %w", format, errors.ErrUnsupportedImage),
		}
	}
}
