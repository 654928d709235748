package buffer

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/retry"
	"github.com/coral-mesh/hxgrep/internal/source"
)

// Cursor reads from a source into buffers. Positioned reads are independent
// of each other; sequential reads advance the cursor's own position. A
// Cursor is not safe for concurrent use, but several cursors may share one
// seekable source.
type Cursor struct {
	ctx   context.Context
	src   source.Source
	ra    source.RandomAccess
	pos   int64
	retry retry.Config
}

// NewCursor returns a cursor over src positioned at 0.
func NewCursor(ctx context.Context, src source.Source) *Cursor {
	c := &Cursor{ctx: ctx, src: src, retry: retry.ReadConfig()}
	if ra, ok := source.AsRandomAccess(src); ok {
		c.ra = ra
	}
	return c
}

// Pos is the offset of the next sequential read.
func (c *Cursor) Pos() int64 { return c.pos }

// ReadAt fills p from offset off. It returns io.EOF when the source ends
// before p is full.
func (c *Cursor) ReadAt(p []byte, off int64) (int, error) {
	if c.ra == nil {
		return 0, &errors.IOError{Op: "read", Path: c.src.Name(), Offset: off, Requested: len(p), Err: errors.ErrNotSeekable}
	}
	got := 0
	for got < len(p) {
		var n int
		err := retry.Do(c.ctx, c.retry, func() error {
			var rerr error
			n, rerr = c.ra.ReadAt(p[got:], off+int64(got))
			if n > 0 && retry.Transient(rerr) {
				return nil
			}
			return rerr
		}, retry.Transient)
		got += n
		if stderrors.Is(err, io.EOF) {
			return got, io.EOF
		}
		if err != nil {
			return got, &errors.IOError{Op: "read", Path: c.src.Name(), Offset: off, Requested: len(p), Got: got, Err: err}
		}
	}
	return got, nil
}

// Read reads into p from the current sequential position. Seekable sources
// are read positionally until p is full, so cursors sharing a source do not
// disturb each other. Forward-only sources return as soon as any bytes
// arrive. It returns io.EOF once the source ends.
func (c *Cursor) Read(p []byte) (int, error) {
	if c.ra != nil {
		n, err := c.ReadAt(p, c.pos)
		c.pos += int64(n)
		return n, err
	}
	got := 0
	for got < len(p) {
		var n int
		err := retry.Do(c.ctx, c.retry, func() error {
			var rerr error
			n, rerr = c.src.Read(p[got:])
			if n > 0 && retry.Transient(rerr) {
				return nil
			}
			return rerr
		}, retry.Transient)
		got += n
		c.pos += int64(n)
		if stderrors.Is(err, io.EOF) {
			return got, io.EOF
		}
		if err != nil {
			return got, &errors.IOError{Op: "read", Path: c.src.Name(), Offset: c.pos - int64(got), Requested: len(p), Got: got, Err: err}
		}
		if got > 0 {
			return got, nil
		}
		if err := c.ctx.Err(); err != nil {
			return got, err
		}
	}
	return got, nil
}

// ReadFull fills p from off and treats a short read as an error.
func (c *Cursor) ReadFull(p []byte, off int64) error {
	n, err := c.ReadAt(p, off)
	if err == io.EOF {
		if n == len(p) {
			return nil
		}
		return &errors.IOError{Op: "read", Path: c.src.Name(), Offset: off, Requested: len(p), Got: n, Err: io.ErrUnexpectedEOF}
	}
	return err
}

// Skip advances the sequential position by n bytes, discarding them on
// forward-only sources. Skipping past the end is not an error.
func (c *Cursor) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	if c.ra != nil {
		c.pos += n
		return nil
	}
	skipped, err := io.CopyN(io.Discard, c.src, n)
	c.pos += skipped
	if err != nil && err != io.EOF {
		return &errors.IOError{Op: "skip", Path: c.src.Name(), Offset: c.pos, Err: err}
	}
	return nil
}

// Fill reads into the free tail of b: positioned at off when the source is
// seekable and off >= 0, sequentially otherwise. It returns io.EOF once the
// source is exhausted.
func (c *Cursor) Fill(b *Buffer, off int64) (int, error) {
	var (
		n   int
		err error
	)
	if off >= 0 && c.ra != nil {
		n, err = c.ReadAt(b.Free(), off)
	} else {
		n, err = c.Read(b.Free())
	}
	b.n += n
	return n, err
}
