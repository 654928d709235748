package scan

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/coral-mesh/hxgrep/internal/pattern"
	"github.com/coral-mesh/hxgrep/internal/source"
)

// NewCoordinator returns the matches of m in src, scanned in parallel over
// fixed-size chunks. The result is identical to NewScanner for every worker
// count and chunk size. Sources that are not seekable or have no known size,
// and patterns anchored at the origin, are scanned sequentially.
func NewCoordinator(ctx context.Context, m *pattern.Matcher, src source.Source, opts Options) (*Stream[Match], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	size, ok := src.Size()
	if !ok || !src.Seekable() {
		opts.Logger.Debug().
			Str("source", src.Name()).
			Msg("Source is not seekable, falling back to sequential scan")
		return NewScanner(ctx, m, src, opts)
	}
	if m.Anchored() {
		// Only a match at the origin is possible.
		opts.Logger.Debug().
			Str("source", src.Name()).
			Msg("Pattern is anchored at the origin, scanning sequentially")
		return NewScanner(ctx, m, src, opts)
	}

	workers := max(opts.Workers, 1)
	chunks := Partition(opts.Origin, size, int64(opts.ChunkSize), m.Overlap(opts.OverlapCap))
	opts.Logger.Debug().
		Str("source", src.Name()).
		Int("chunks", len(chunks)).
		Int("workers", workers).
		Int("chunk_size", opts.ChunkSize).
		Msg("Starting parallel scan")

	c := &coordinator{
		m:        m,
		src:      src,
		size:     size,
		chunks:   chunks,
		frontier: opts.Origin,
		opts:     opts,
	}
	c.reached.Store(c.frontier)
	c.ord = newOrdered(ctx, chunks, workers, c.scanChunk)
	return newStream(c.next, func() error {
		c.close()
		return nil
	}), nil
}

type chunkMatches struct {
	chunk   Chunk
	matches []Match
	// truncated reports that the search after the last match hit the
	// read-ahead cap undecided.
	truncated bool
}

// coordinator merges per-chunk match chains into the sequential chain.
//
// Each worker reports the chain of matches found by searching from its chunk
// start, restricted to starts inside the chunk. The frontier is where the
// sequential scan resumes. A worker chain is valid from any point of one of
// its gaps (chunk start, the end of each match, up to the next match start)
// because a search from anywhere in a gap finds the same next match. When
// the frontier lands inside a worker match instead, the chunk is searched
// again from the frontier until the chain reaches one of the worker's gaps.
//
// Workers read at most the chunk overlap past their chunk. A chain cut short
// there has no valid last gap, so the coordinator searches the rest of the
// chunk itself with unbounded read-ahead. Chunks that end before the
// frontier are skipped by their worker.
type coordinator struct {
	m      *pattern.Matcher
	src    source.Source
	size   int64
	chunks []Chunk
	ord    *ordered[chunkMatches]
	cur    int

	frontier int64
	reached  atomic.Int64
	pending  []Match

	rescan *matchIter
	worker chunkMatches

	opts Options
}

func (c *coordinator) scanChunk(ctx context.Context, ch Chunk) (chunkMatches, error) {
	if ch.End <= c.reached.Load() {
		c.opts.progress(ch.Len())
		c.opts.Logger.Trace().
			Int("chunk", ch.Index).
			Msg("Chunk behind the frontier, skipped")
		return chunkMatches{chunk: ch}, nil
	}

	f := newRegionFeeder(ctx, c.src, c.size, ch.Start, ch.End, c.opts)
	f.readEnd = min(ch.End+int64(ch.Overlap)+1, c.size)
	it := newMatchIter(ctx, c.m, f, ch.Start, ch.End, c.opts)
	defer it.close()

	var out []Match
	for {
		m, ok, err := it.next()
		if err != nil {
			return chunkMatches{}, err
		}
		if !ok {
			break
		}
		out = append(out, m)
	}
	c.opts.Logger.Trace().
		Int("chunk", ch.Index).
		Int("matches", len(out)).
		Bool("truncated", it.truncated).
		Msg("Chunk scanned")
	return chunkMatches{chunk: ch, matches: out, truncated: it.truncated}, nil
}

func (c *coordinator) next() (Match, bool, error) {
	for {
		if len(c.pending) > 0 {
			m := c.pending[0]
			c.pending = c.pending[1:]
			return m, true, nil
		}
		if c.rescan != nil {
			m, ok, err := c.rescanNext()
			if err != nil {
				return Match{}, false, err
			}
			if ok {
				return m, true, nil
			}
			continue
		}
		if c.cur == len(c.chunks) {
			return Match{}, false, nil
		}

		r, err := c.ord.result(c.cur)
		if err != nil {
			return Match{}, false, err
		}
		c.cur++
		c.merge(r)
	}
}

func (c *coordinator) merge(r chunkMatches) {
	ch := r.chunk
	if c.frontier >= ch.End {
		// Every match of the chunk starts before the frontier.
		return
	}
	// No match starts between the frontier and the chunk start.
	off := max(c.frontier, ch.Start)
	j, ok := gapAt(r, off)
	if ok {
		c.accept(r.matches[j:])
		if !r.truncated {
			return
		}
	} else {
		c.opts.Logger.Trace().
			Int("chunk", ch.Index).
			Int64("frontier", c.frontier).
			Bool("truncated", r.truncated).
			Msg("Frontier outside the chunk chain, searching again")
	}
	c.startRescan(r, max(c.frontier, ch.Start))
}

func (c *coordinator) startRescan(r chunkMatches, from int64) {
	opts := c.opts
	opts.Progress = nil
	f := newRegionFeeder(c.ord.gctx, c.src, c.size, from, r.chunk.End, opts)
	c.rescan = newMatchIter(c.ord.gctx, c.m, f, from, r.chunk.End, opts)
	c.worker = r
}

func (c *coordinator) accept(ms []Match) {
	if len(ms) == 0 {
		return
	}
	c.pending = append(c.pending, ms...)
	c.advance(ms[len(ms)-1].End())
}

func (c *coordinator) advance(off int64) {
	c.frontier = off
	c.reached.Store(off)
}

func (c *coordinator) rescanNext() (Match, bool, error) {
	m, ok, err := c.rescan.next()
	if err != nil {
		return Match{}, false, err
	}
	if !ok {
		c.endRescan()
		return Match{}, false, nil
	}
	c.advance(m.End())
	if j, ok := gapAt(c.worker, c.frontier); ok {
		r := c.worker
		rest := r.matches[j:]
		c.endRescan()
		c.accept(rest)
		if r.truncated {
			c.startRescan(r, c.frontier)
		}
	}
	return m, true, nil
}

func (c *coordinator) endRescan() {
	c.rescan.close()
	c.rescan = nil
	c.worker = chunkMatches{}
}

func (c *coordinator) close() {
	c.ord.close()
	if c.rescan != nil {
		c.endRescan()
	}
}

// gapAt finds the gap of the worker chain containing off. Gap j runs from
// the end of match j-1 (the chunk start for j = 0) to the start of match j
// (the chunk end past the last match); the chain continues with matches[j:].
// The last gap of a truncated chain is never valid.
func gapAt(r chunkMatches, off int64) (int, bool) {
	ms := r.matches
	j, _ := slices.BinarySearchFunc(ms, off, func(m Match, off int64) int {
		switch {
		case m.Offset < off:
			return -1
		case m.Offset > off:
			return 1
		}
		return 0
	})
	lo := r.chunk.Start
	if j > 0 {
		lo = ms[j-1].End()
	}
	hi := r.chunk.End
	if j < len(ms) {
		hi = ms[j].Offset
	} else if r.truncated {
		return j, false
	}
	return j, lo <= off && off <= hi
}
