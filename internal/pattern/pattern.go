// Package pattern compiles hex-escape regular expressions into byte-level
// matchers.
//
// The grammar is deliberately small: byte literals (\xHH), '.', bracket
// classes, the quantifiers ? * + {n} {n,} {n,m} (optionally lazy) and the
// anchors ^ and $ at the pattern edges. Alternation and groups are not
// supported. Matching is leftmost-first and byte oriented; there are no
// Unicode semantics, so \xBA matches the single byte 0xBA.
//
// A Matcher is immutable and safe for concurrent use. All search state lives
// in a Searcher, which callers obtain per goroutine.
package pattern

import (
	"bytes"

	"github.com/coral-mesh/hxgrep/internal/errors"
)

// Error reports an invalid expression.
type Error = errors.PatternError

// Matcher is a compiled expression.
type Matcher struct {
	expr   string
	prog   *program
	terms  []Term
	begin  bool
	end    bool
	minLen int
	maxLen int
	first  ByteSet
}

// Compile parses expr and returns its matcher.
func Compile(expr string) (*Matcher, error) {
	syn, err := parse(expr)
	if err != nil {
		return nil, err
	}

	m := &Matcher{
		expr:  expr,
		terms: syn.terms,
		begin: syn.begin,
		end:   syn.end,
	}
	for _, t := range syn.terms {
		m.minLen += t.Min
		if m.maxLen != Unbounded {
			if t.Max == Unbounded {
				m.maxLen = Unbounded
			} else {
				m.maxLen += t.Max
			}
		}
	}
	if m.minLen == 0 {
		return nil, &Error{Expr: expr, Pos: 0, Msg: "pattern can match empty input"}
	}

	for _, t := range syn.terms {
		if t.Max == 0 {
			continue
		}
		m.first.Union(t.Set)
		if t.Min > 0 {
			break
		}
	}

	if m.prog, err = compile(expr, syn); err != nil {
		return nil, err
	}
	return m, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Matcher {
	m, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the source expression.
func (m *Matcher) String() string { return m.expr }

// MinLen is the length of the shortest possible match.
func (m *Matcher) MinLen() int { return m.minLen }

// MaxLen is the length of the longest possible match, or Unbounded.
func (m *Matcher) MaxLen() int { return m.maxLen }

// Anchored reports whether matches must start at the scan origin.
func (m *Matcher) Anchored() bool { return m.begin }

// AnchoredEnd reports whether matches must end at the end of the source.
func (m *Matcher) AnchoredEnd() bool { return m.end }

// Overlap returns the carry needed between adjacent windows so that every
// match of length at most limit+1 is visible in one window.
func (m *Matcher) Overlap(limit int) int {
	if m.maxLen == Unbounded || m.maxLen-1 > limit {
		return limit
	}
	return m.maxLen - 1
}

// FindAll returns the [start, end) pairs of every non-overlapping match in
// data, treating data as the whole source with its origin at index 0.
func (m *Matcher) FindAll(data []byte) [][2]int {
	var out [][2]int
	s := m.NewSearcher(0)
	for from := 0; from < len(data); {
		s.Reset(int64(from), -1)
		if s.Feed(data[from:], true) != Found {
			break
		}
		start, end := s.Match()
		out = append(out, [2]int{int(start), int(end)})
		from = int(end)
	}
	return out
}

// Match reports whether data contains a match.
func (m *Matcher) Match(data []byte) bool {
	s := m.NewSearcher(0)
	s.Reset(0, -1)
	return s.Feed(data, true) == Found
}

// skip returns the index of the first byte in p that can start a match, or
// len(p) when there is none.
func (m *Matcher) skip(p []byte) int {
	if b, ok := m.first.Single(); ok {
		if i := bytes.IndexByte(p, b); i >= 0 {
			return i
		}
		return len(p)
	}
	for i, c := range p {
		if m.first.Has(c) {
			return i
		}
	}
	return len(p)
}
