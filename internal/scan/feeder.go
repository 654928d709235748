package scan

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/coral-mesh/hxgrep/internal/buffer"
	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/source"
)

var (
	// errBudget is returned by a feeder that cannot hold more undecided input.
	errBudget = stderrors.New("window budget exhausted")
	// errReadAhead is returned by a region feeder asked for bytes past its
	// read limit.
	errReadAhead = stderrors.New("read-ahead limit reached")
)

// feeder supplies source bytes to a match iterator.
type feeder interface {
	// bytesAt returns source bytes starting at pos. eof reports that they
	// run to the end of the source. Bytes before keep may be discarded.
	bytesAt(pos, keep int64) (p []byte, eof bool, err error)
	// copyOut returns up to n bytes at off, fewer at the end of the source.
	copyOut(off int64, n int) ([]byte, error)
	release()
}

// regionFeeder reads a seekable source positionally. Only [start, end) is
// counted towards progress; reads past end serve matches that started
// inside it. Nothing at or past readEnd is read.
type regionFeeder struct {
	name    string
	cur     *buffer.Cursor
	pool    *buffer.Pool
	win     *buffer.Buffer
	base    int64
	size    int64
	start   int64
	end     int64
	readEnd int64
	seen    int64
	opts    Options
}

func newRegionFeeder(ctx context.Context, src source.Source, size, start, end int64, opts Options) *regionFeeder {
	return &regionFeeder{
		name:    src.Name(),
		cur:     buffer.NewCursor(ctx, src),
		pool:    opts.Pool,
		win:     opts.Pool.Acquire(opts.ChunkSize + opts.OverlapCap),
		size:    size,
		start:   start,
		end:     end,
		readEnd: size,
		seen:    start,
		opts:    opts,
	}
}

func (f *regionFeeder) bytesAt(pos, _ int64) ([]byte, bool, error) {
	if pos >= f.size {
		return nil, true, nil
	}
	if pos >= f.readEnd {
		return nil, false, errReadAhead
	}
	if pos < f.base || pos >= f.base+int64(f.win.Len()) {
		if err := f.fill(pos); err != nil {
			return nil, false, err
		}
	}
	winEnd := f.base + int64(f.win.Len())
	return f.win.Bytes()[pos-f.base:], winEnd >= f.size, nil
}

func (f *regionFeeder) fill(pos int64) error {
	f.win.SetLen(0)
	f.base = pos
	free := f.win.Free()
	if room := f.readEnd - pos; room < int64(len(free)) {
		free = free[:room]
	}
	n, err := f.cur.ReadAt(free, pos)
	f.win.SetLen(n)
	if err != nil && err != io.EOF {
		return err
	}
	if n == 0 {
		return &errors.IOError{Op: "read", Path: f.name, Offset: pos, Requested: f.win.Cap(), Err: io.ErrUnexpectedEOF}
	}
	if hi := min(f.base+int64(n), f.end); hi > f.seen {
		f.opts.progress(hi - f.seen)
		f.seen = hi
	}
	return nil
}

func (f *regionFeeder) copyOut(off int64, n int) ([]byte, error) {
	n = int(min(int64(n), f.size-off))
	if n <= 0 {
		return nil, nil
	}
	out := make([]byte, n)
	if off >= f.base && off+int64(n) <= f.base+int64(f.win.Len()) {
		copy(out, f.win.Bytes()[off-f.base:])
		return out, nil
	}
	if err := f.cur.ReadFull(out, off); err != nil {
		return nil, err
	}
	return out, nil
}

// finish reports the unscanned remainder of the region as done.
func (f *regionFeeder) finish() {
	if f.end > f.seen {
		f.opts.progress(f.end - f.seen)
		f.seen = f.end
	}
}

func (f *regionFeeder) release() {
	f.finish()
	if f.win != nil {
		f.pool.Release(f.win)
		f.win = nil
	}
}

// streamFeeder reads a forward-only source into a sliding window that keeps
// only the bytes an undecided match may still need.
type streamFeeder struct {
	cur    *buffer.Cursor
	pool   *buffer.Pool
	win    *buffer.Buffer
	base   int64
	eof    bool
	chunk  int
	budget int
	opts   Options
}

func newStreamFeeder(cur *buffer.Cursor, opts Options) *streamFeeder {
	return &streamFeeder{
		cur:    cur,
		pool:   opts.Pool,
		win:    opts.Pool.Acquire(opts.ChunkSize + opts.OverlapCap),
		base:   cur.Pos(),
		chunk:  opts.ChunkSize,
		budget: opts.MatchCap + opts.ChunkSize,
		opts:   opts,
	}
}

func (f *streamFeeder) winEnd() int64 { return f.base + int64(f.win.Len()) }

func (f *streamFeeder) bytesAt(pos, keep int64) ([]byte, bool, error) {
	for pos >= f.winEnd() && !f.eof {
		f.compact(min(keep, pos))
		if f.win.Len() >= f.budget {
			return nil, false, errBudget
		}
		if err := f.read(); err != nil {
			return nil, false, err
		}
	}
	if pos >= f.winEnd() {
		return nil, true, nil
	}
	return f.win.Bytes()[pos-f.base:], f.eof, nil
}

func (f *streamFeeder) compact(keep int64) {
	if keep > f.base {
		f.win.Consume(int(keep - f.base))
		f.base = keep
	}
}

func (f *streamFeeder) read() error {
	f.win.Grow(f.chunk)
	free := f.win.Free()
	n, err := f.cur.Read(free[:min(len(free), f.chunk)])
	f.win.SetLen(f.win.Len() + n)
	f.opts.progress(int64(n))
	if err == io.EOF {
		f.eof = true
		return nil
	}
	return err
}

func (f *streamFeeder) copyOut(off int64, n int) ([]byte, error) {
	for off+int64(n) > f.winEnd() && !f.eof {
		if err := f.read(); err != nil {
			return nil, err
		}
	}
	n = int(min(int64(n), f.winEnd()-off))
	if n <= 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, f.win.Bytes()[off-f.base:])
	return out, nil
}

func (f *streamFeeder) release() {
	if f.win != nil {
		f.pool.Release(f.win)
		f.win = nil
	}
}
