// Package source abstracts the byte inputs hxgrep scans: regular files,
// in-memory buffers and forward-only streams such as standard input.
package source

import (
	"bytes"
	"io"
	"os"
)

// Source is a readable input. Read consumes the input sequentially from its
// beginning.
type Source interface {
	io.Reader
	io.Closer
	// Name identifies the input in messages and structured output.
	Name() string
	// Seekable reports whether the source also implements io.ReaderAt.
	Seekable() bool
	// Size returns the total length when it is known.
	Size() (int64, bool)
}

// RandomAccess is a Source that supports positioned reads.
type RandomAccess interface {
	Source
	io.ReaderAt
}

// AsRandomAccess returns src as a RandomAccess when it is seekable.
func AsRandomAccess(src Source) (RandomAccess, bool) {
	if !src.Seekable() {
		return nil, false
	}
	ra, ok := src.(RandomAccess)
	return ra, ok
}

// File is a seekable source backed by an open file.
type File struct {
	f    *os.File
	name string
	size int64
}

// NewFile wraps f. The size is taken from f.Stat.
func NewFile(f *os.File) (*File, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &File{f: f, name: f.Name(), size: info.Size()}, nil
}

func (s *File) Read(p []byte) (int, error)              { return s.f.Read(p) }
func (s *File) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s *File) Close() error                            { return s.f.Close() }
func (s *File) Name() string                            { return s.name }
func (s *File) Seekable() bool                          { return true }
func (s *File) Size() (int64, bool)                     { return s.size, true }

// Memory is a seekable source over a byte slice.
type Memory struct {
	*bytes.Reader
	name string
	size int64
}

// NewMemory returns a source reading data.
func NewMemory(name string, data []byte) *Memory {
	return &Memory{Reader: bytes.NewReader(data), name: name, size: int64(len(data))}
}

func (s *Memory) Close() error        { return nil }
func (s *Memory) Name() string        { return s.name }
func (s *Memory) Seekable() bool      { return true }
func (s *Memory) Size() (int64, bool) { return s.size, true }

// Stream is a forward-only source of unknown length.
type Stream struct {
	r    io.Reader
	name string
}

// NewStream wraps r. Close closes r when it is an io.Closer.
func NewStream(name string, r io.Reader) *Stream {
	return &Stream{r: r, name: name}
}

// Stdin returns standard input as a stream. Closing it leaves os.Stdin open.
func Stdin() *Stream {
	return NewStream("-", io.NopCloser(os.Stdin))
}

func (s *Stream) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *Stream) Name() string               { return s.name }
func (s *Stream) Seekable() bool             { return false }
func (s *Stream) Size() (int64, bool)        { return 0, false }

func (s *Stream) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
