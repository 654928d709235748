package scan

import (
	"context"
	stderrors "errors"

	"github.com/coral-mesh/hxgrep/internal/pattern"
)

// matchIter walks the chain of non-overlapping matches that start in
// [from, limit): each search resumes where the previous match ended.
type matchIter struct {
	ctx   context.Context
	s     *pattern.Searcher
	f     feeder
	from  int64
	limit int64
	opts  Options
	done  bool
	cut   bool
	// truncated is set when the chain stopped at the feeder's read-ahead
	// limit with the search after the last match undecided.
	truncated bool
}

func newMatchIter(ctx context.Context, m *pattern.Matcher, f feeder, from, limit int64, opts Options) *matchIter {
	return &matchIter{
		ctx:   ctx,
		s:     m.NewSearcher(opts.Origin),
		f:     f,
		from:  from,
		limit: limit,
		opts:  opts,
	}
}

// next returns the next match of the chain.
func (it *matchIter) next() (Match, bool, error) {
	for !it.done {
		if err := it.ctx.Err(); err != nil {
			return Match{}, false, err
		}
		it.s.Reset(it.from, it.limit)

		res, err := it.search()
		if err != nil {
			return Match{}, false, err
		}
		if it.truncated {
			it.done = true
			break
		}
		if res == pattern.NotFound {
			if it.cut && it.s.Pos() > it.from {
				// Candidates abandoned at the window budget; resume after them.
				it.from = it.s.Pos()
				continue
			}
			it.done = true
			break
		}

		start, end := it.s.Match()
		m, err := it.build(start, end)
		if err != nil {
			return Match{}, false, err
		}
		it.from = end
		return m, true, nil
	}
	return Match{}, false, nil
}

// search feeds the searcher until the current search is decided.
func (it *matchIter) search() (pattern.Result, error) {
	it.cut = false
	for {
		p, eof, err := it.f.bytesAt(it.s.Pos(), it.s.KeepFrom())
		if stderrors.Is(err, errBudget) {
			it.cut = true
			return it.s.Cut(), nil
		}
		if stderrors.Is(err, errReadAhead) {
			it.truncated = true
			return pattern.NeedMore, nil
		}
		if err != nil {
			return pattern.NotFound, err
		}
		if res := it.s.Feed(p, eof); res != pattern.NeedMore {
			return res, nil
		}
	}
}

func (it *matchIter) build(start, end int64) (Match, error) {
	length := end - start
	data, err := it.f.copyOut(start, int(min(length, int64(it.opts.MatchCap))))
	if err != nil {
		return Match{}, err
	}
	preview, err := it.f.copyOut(start, it.opts.Width)
	if err != nil {
		return Match{}, err
	}
	return Match{Offset: start, Length: length, Data: data, Preview: preview}, nil
}

func (it *matchIter) close() {
	it.f.release()
}
