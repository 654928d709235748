package scan

import (
	"context"

	"github.com/google/uuid"

	"github.com/coral-mesh/hxgrep/internal/buffer"
	"github.com/coral-mesh/hxgrep/internal/pattern"
	"github.com/coral-mesh/hxgrep/internal/source"
)

// Search scans src for m, in parallel when opts.Workers > 1.
func Search(ctx context.Context, m *pattern.Matcher, src source.Source, opts Options) (*Stream[Match], error) {
	opts.Logger = opts.Logger.With().Str("scan_id", uuid.New().String()).Logger()
	opts.Logger.Debug().
		Str("source", src.Name()).
		Str("pattern", m.String()).
		Int("min_len", m.MinLen()).
		Int("max_len", m.MaxLen()).
		Bool("anchored", m.Anchored()).
		Bool("anchored_end", m.AnchoredEnd()).
		Int64("position", opts.Origin).
		Int("workers", opts.Workers).
		Msg("Starting scan")

	if opts.Workers > 1 || opts.Workers < 0 {
		return NewCoordinator(ctx, m, src, opts)
	}
	return NewScanner(ctx, m, src, opts)
}

// Dump returns the content of src as Width-byte blocks, read in parallel
// when opts.Workers > 1 and src is seekable.
func Dump(ctx context.Context, src source.Source, opts Options) (*Stream[Block], error) {
	opts.Logger = opts.Logger.With().Str("scan_id", uuid.New().String()).Logger()
	opts.Logger.Debug().
		Str("source", src.Name()).
		Int64("position", opts.Origin).
		Int("workers", opts.Workers).
		Msg("Starting dump")

	if opts.Workers > 1 || opts.Workers < 0 {
		return NewParallelDumper(ctx, src, opts)
	}
	return NewDumper(ctx, src, opts)
}

// NewParallelDumper is NewDumper with chunks read by a worker pool. Chunk
// sizes are rounded up to a multiple of Width so that every block but the
// last is full.
func NewParallelDumper(ctx context.Context, src source.Source, opts Options) (*Stream[Block], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	size, ok := src.Size()
	if !ok || !src.Seekable() {
		opts.Logger.Debug().
			Str("source", src.Name()).
			Msg("Source is not seekable, falling back to sequential dump")
		return NewDumper(ctx, src, opts)
	}

	width := int64(opts.Width)
	chunks := Partition(opts.Origin, size, alignUp(int64(opts.ChunkSize), width), 0)
	work := func(ctx context.Context, c Chunk) ([]Block, error) {
		buf := opts.Pool.Acquire(int(c.Len()))
		defer opts.Pool.Release(buf)
		if err := buffer.NewCursor(ctx, src).ReadFull(buf.Free()[:c.Len()], c.Start); err != nil {
			return nil, err
		}
		opts.progress(c.Len())

		// Blocks outlive the pooled buffer.
		data := make([]byte, c.Len())
		copy(data, buf.Free())
		blocks := make([]Block, 0, (c.Len()+width-1)/width)
		for off := int64(0); off < c.Len(); off += width {
			blocks = append(blocks, Block{Offset: c.Start + off, Data: data[off:min(off+width, c.Len())]})
		}
		return blocks, nil
	}
	ord := newOrdered(ctx, chunks, max(opts.Workers, 1), work)

	var (
		cur     int
		pending []Block
	)
	next := func() (Block, bool, error) {
		for len(pending) == 0 {
			if cur == len(chunks) {
				return Block{}, false, nil
			}
			blocks, err := ord.result(cur)
			if err != nil {
				return Block{}, false, err
			}
			cur++
			pending = blocks
		}
		b := pending[0]
		pending = pending[1:]
		return b, true, nil
	}
	return newStream(next, func() error {
		ord.close()
		return nil
	}), nil
}
