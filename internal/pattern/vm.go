package pattern

// Result is the outcome of feeding input to a Searcher.
type Result int

const (
	// NeedMore means the decision depends on bytes not yet supplied.
	NeedMore Result = iota
	// Found means a match was decided; see Searcher.Match.
	Found
	// NotFound means no match starts in the searched range.
	NotFound
)

func (r Result) String() string {
	switch r {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	default:
		return "need-more"
	}
}

type thread struct {
	pc    int
	start int64
}

// threadList is an ordered thread queue with per-step pc deduplication.
type threadList struct {
	threads []thread
	mark    []uint32
	gen     uint32
}

func newThreadList(n int) threadList {
	return threadList{mark: make([]uint32, n), gen: 1}
}

func (l *threadList) clear() {
	l.threads = l.threads[:0]
	l.gen++
	if l.gen == 0 {
		clear(l.mark)
		l.gen = 1
	}
}

// visit marks pc and reports whether it was unmarked.
func (l *threadList) visit(pc int) bool {
	if l.mark[pc] == l.gen {
		return false
	}
	l.mark[pc] = l.gen
	return true
}

// Searcher runs a Matcher incrementally over input supplied in pieces.
//
// A search is started with Reset and driven with Feed, which must be given the
// source bytes that start at Pos. Found, NotFound and NeedMore are reported as
// soon as they are decided. Results depend only on the source bytes from the
// search start onward, never on how the input was split into pieces.
type Searcher struct {
	m      *Matcher
	origin int64
	limit  int64
	pos    int64

	clist threadList
	nlist threadList

	matched bool
	mStart  int64
	mEnd    int64
}

// NewSearcher returns a Searcher whose '^' anchor holds at origin.
func (m *Matcher) NewSearcher(origin int64) *Searcher {
	n := len(m.prog.insts)
	return &Searcher{
		m:      m,
		origin: origin,
		limit:  -1,
		clist:  newThreadList(n),
		nlist:  newThreadList(n),
	}
}

// Reset starts a new search at from. Only matches starting before limit are
// considered; a negative limit means no bound.
func (s *Searcher) Reset(from, limit int64) {
	s.pos = from
	s.limit = limit
	s.matched = false
	s.clist.clear()
	s.nlist.clear()
}

// Pos is the offset of the next byte Feed expects.
func (s *Searcher) Pos() int64 { return s.pos }

// Match returns the [start, end) of the match after Feed reported Found.
func (s *Searcher) Match() (start, end int64) { return s.mStart, s.mEnd }

// KeepFrom is the lowest offset whose bytes may still be part of the
// eventual match. Callers holding a window of input may drop bytes before it.
func (s *Searcher) KeepFrom() int64 {
	keep := s.pos
	if s.matched && s.mStart < keep {
		keep = s.mStart
	}
	for _, t := range s.clist.threads {
		if t.start < keep {
			keep = t.start
		}
	}
	return keep
}

// Pending reports whether any candidate match is still undecided.
func (s *Searcher) Pending() bool {
	return s.matched || len(s.clist.threads) > 0
}

func (s *Searcher) canSeed(pos int64) bool {
	if s.matched {
		return false
	}
	if s.limit >= 0 && pos >= s.limit {
		return false
	}
	return !s.m.begin || pos == s.origin
}

// Feed advances the search over p, the bytes at Pos. eof reports that p ends
// at the end of the source.
func (s *Searcher) Feed(p []byte, eof bool) Result {
	i := 0
	for {
		if i == len(p) && !eof {
			return NeedMore
		}

		if s.canSeed(s.pos) {
			if len(s.clist.threads) == 0 && i < len(p) {
				n := s.m.skip(p[i:])
				if s.limit >= 0 && s.pos+int64(n) > s.limit {
					n = int(s.limit - s.pos)
				}
				i += n
				s.pos += int64(n)
				if i == len(p) && !eof {
					return NeedMore
				}
			}
			if s.canSeed(s.pos) {
				s.add(&s.clist, 0, s.pos, s.pos)
			}
		}

		if len(s.clist.threads) == 0 {
			if s.matched {
				return Found
			}
			if i == len(p) || !s.canSeed(s.pos) && s.exhausted() {
				return NotFound
			}
			i++
			s.pos++
			continue
		}

		if i == len(p) {
			s.step(0, true)
			if s.matched {
				return Found
			}
			return NotFound
		}

		s.step(p[i], false)
		i++
		s.pos++
	}
}

// exhausted reports whether no later position can start a match.
func (s *Searcher) exhausted() bool {
	if s.matched {
		return true
	}
	if s.limit >= 0 && s.pos >= s.limit {
		return true
	}
	return s.m.begin && s.pos > s.origin
}

// step runs every thread in clist against byte b at s.pos. At eof no byte is
// consumed and only accepting threads survive.
func (s *Searcher) step(b byte, eof bool) {
	prog := s.m.prog
	s.nlist.clear()
	for _, t := range s.clist.threads {
		in := &prog.insts[t.pc]
		switch in.op {
		case opMatch:
			s.record(t.start, s.pos)
			// Lower-priority threads are cut.
			goto done
		case opEnd:
			if eof {
				s.record(t.start, s.pos)
				goto done
			}
		case opByte:
			if !eof && prog.sets[in.set].Has(b) {
				s.add(&s.nlist, in.out, t.start, s.pos+1)
			}
		}
	}
done:
	s.clist, s.nlist = s.nlist, s.clist
	if eof {
		s.clist.clear()
	}
}

func (s *Searcher) record(start, end int64) {
	s.matched = true
	s.mStart = start
	s.mEnd = end
}

// add follows epsilon transitions from pc at pos and queues the threads
// that wait on input.
func (s *Searcher) add(l *threadList, pc int, start, pos int64) {
	if !l.visit(pc) {
		return
	}
	in := &s.m.prog.insts[pc]
	switch in.op {
	case opSplit:
		s.add(l, in.out, start, pos)
		s.add(l, in.alt, start, pos)
	case opBegin:
		if pos == s.origin {
			s.add(l, in.out, start, pos)
		}
	default:
		l.threads = append(l.threads, thread{pc: pc, start: start})
	}
}

// Cut decides the search at Pos without treating Pos as the end of the
// source: candidates that already matched are kept and all others are
// abandoned. It returns Found or NotFound.
func (s *Searcher) Cut() Result {
	for _, t := range s.clist.threads {
		if s.m.prog.insts[t.pc].op == opMatch {
			s.record(t.start, s.pos)
			break
		}
	}
	s.clist.clear()
	if s.matched {
		return Found
	}
	return NotFound
}
