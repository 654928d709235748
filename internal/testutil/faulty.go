package testutil

import (
	"bytes"
	"io"
	"sync"
	"syscall"
)

// FaultySource is an in-memory seekable source whose reads fail once they
// touch FailAt. It also returns Interrupts EINTR errors before serving
// reads normally. It is safe for concurrent use.
type FaultySource struct {
	Data       []byte
	FailAt     int64
	Err        error
	Interrupts int

	mu    sync.Mutex
	reads int
	bytes int64
	pos   int64
}

// NewFaultySource returns a source over data failing at failAt with err.
// A negative failAt never fails.
func NewFaultySource(data []byte, failAt int64, err error) *FaultySource {
	return &FaultySource{Data: data, FailAt: failAt, Err: err}
}

// Reads is the number of read calls served so far.
func (s *FaultySource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// BytesRead is the number of bytes served so far.
func (s *FaultySource) BytesRead() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

func (s *FaultySource) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	s.reads++
	if s.Interrupts > 0 {
		s.Interrupts--
		s.mu.Unlock()
		return 0, syscall.EINTR
	}
	s.mu.Unlock()

	n, err := s.readAt(p, off)
	s.mu.Lock()
	s.bytes += int64(n)
	s.mu.Unlock()
	return n, err
}

func (s *FaultySource) readAt(p []byte, off int64) (int, error) {
	if s.FailAt >= 0 && off+int64(len(p)) > s.FailAt {
		n := max(0, min(s.FailAt, int64(len(s.Data)))-off)
		copy(p, s.Data[off:off+n])
		return int(n), s.Err
	}
	return bytes.NewReader(s.Data).ReadAt(p, off)
}

func (s *FaultySource) Read(p []byte) (int, error) {
	s.mu.Lock()
	off := s.pos
	s.mu.Unlock()
	n, err := s.ReadAt(p, off)
	s.mu.Lock()
	s.pos += int64(n)
	s.mu.Unlock()
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (s *FaultySource) Close() error        { return nil }
func (s *FaultySource) Name() string        { return "faulty" }
func (s *FaultySource) Seekable() bool      { return true }
func (s *FaultySource) Size() (int64, bool) { return int64(len(s.Data)), true }

// ChunkedReader yields at most N bytes per Read call, like a pipe.
type ChunkedReader struct {
	R io.Reader
	N int
}

func (r *ChunkedReader) Read(p []byte) (int, error) {
	if len(p) > r.N {
		p = p[:r.N]
	}
	return r.R.Read(p)
}
