package scan

import (
	"context"
	"io"

	"github.com/coral-mesh/hxgrep/internal/buffer"
	"github.com/coral-mesh/hxgrep/internal/pattern"
	"github.com/coral-mesh/hxgrep/internal/source"
)

// NewScanner returns the matches of m in src, scanned front to back on the
// calling goroutine. Seekable sources are read positionally; forward-only
// sources through a sliding window.
func NewScanner(ctx context.Context, m *pattern.Matcher, src source.Source, opts Options) (*Stream[Match], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	var f feeder
	if size, ok := src.Size(); ok && src.Seekable() {
		f = newRegionFeeder(ctx, src, size, opts.Origin, size, opts)
	} else {
		cur := buffer.NewCursor(ctx, src)
		if err := cur.Skip(opts.Origin); err != nil {
			cancel()
			return nil, err
		}
		f = newStreamFeeder(cur, opts)
	}

	it := newMatchIter(ctx, m, f, opts.Origin, -1, opts)
	return newStream(it.next, func() error {
		cancel()
		it.close()
		return nil
	}), nil
}

// NewDumper returns src as consecutive Width-byte blocks starting at
// Options.Origin. The last block may be shorter.
func NewDumper(ctx context.Context, src source.Source, opts Options) (*Stream[Block], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	cur := buffer.NewCursor(ctx, src)
	if err := cur.Skip(opts.Origin); err != nil {
		cancel()
		return nil, err
	}
	d := &dumper{
		ctx:  ctx,
		cur:  cur,
		pool: opts.Pool,
		buf:  opts.Pool.Acquire(opts.ChunkSize + opts.OverlapCap),
		pos:  opts.Origin,
		opts: opts,
	}
	return newStream(d.next, func() error {
		cancel()
		d.close()
		return nil
	}), nil
}

type dumper struct {
	ctx  context.Context
	cur  *buffer.Cursor
	pool *buffer.Pool
	buf  *buffer.Buffer
	off  int
	pos  int64
	eof  bool
	opts Options
}

func (d *dumper) next() (Block, bool, error) {
	width := d.opts.Width
	for d.buf.Len()-d.off < width && !d.eof {
		if err := d.ctx.Err(); err != nil {
			return Block{}, false, err
		}
		d.buf.Consume(d.off)
		d.off = 0
		d.buf.Grow(width)
		n, err := d.cur.Fill(d.buf, -1)
		d.opts.progress(int64(n))
		if err == io.EOF {
			d.eof = true
		} else if err != nil {
			return Block{}, false, err
		}
	}

	n := min(width, d.buf.Len()-d.off)
	if n == 0 {
		return Block{}, false, nil
	}
	data := make([]byte, n)
	copy(data, d.buf.Bytes()[d.off:])
	d.off += n
	b := Block{Offset: d.pos, Data: data}
	d.pos += int64(n)
	return b, true, nil
}

func (d *dumper) close() {
	if d.buf != nil {
		d.pool.Release(d.buf)
		d.buf = nil
	}
}
