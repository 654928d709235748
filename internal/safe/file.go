// Package safe opens user-supplied paths with validation.
package safe

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultMaxFileSize is the largest file ReadFile accepts by default (1MB).
const DefaultMaxFileSize = 1 << 20

// FileOptions configures the checks applied before a file is opened.
type FileOptions struct {
	// MaxSize is the maximum allowed file size in bytes. Zero means
	// DefaultMaxFileSize; a negative value disables the check.
	MaxSize int64
	// AllowSymlinks lets the final path component be a symlink.
	AllowSymlinks bool
}

// ValidatePath rejects empty paths and paths containing a ".." component.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	parts := strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' })
	if slices.Contains(parts, "..") {
		return fmt.Errorf("path %q contains a parent directory reference", path)
	}
	return nil
}

// Stat validates path and returns the info of the regular file it names.
func Stat(path string, opts *FileOptions) (os.FileInfo, error) {
	if opts == nil {
		opts = &FileOptions{}
	}
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	maxSize := opts.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	cleanPath := filepath.Clean(path)
	info, err := os.Lstat(cleanPath)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if !opts.AllowSymlinks {
			return nil, fmt.Errorf("file %q is a symlink, which is not allowed", path)
		}
		if info, err = os.Stat(cleanPath); err != nil {
			return nil, err
		}
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("file %q exceeds maximum allowed size of %d bytes", path, maxSize)
	}
	return info, nil
}

// OpenFile validates path and opens it read-only.
func OpenFile(path string, opts *FileOptions) (*os.File, os.FileInfo, error) {
	info, err := Stat(path, opts)
	if err != nil {
		return nil, nil, err
	}
	// #nosec G304 - path validated above.
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}

// ReadFile validates path and reads the whole file.
func ReadFile(path string, opts *FileOptions) ([]byte, error) {
	if _, err := Stat(path, opts); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Clean(path))
}
