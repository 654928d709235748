package pattern

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backtrack is a reference leftmost-first matcher over the parsed terms.
func backtrack(m *Matcher, data []byte) [][2]int {
	terms := m.terms
	var out [][2]int
	for from := 0; from < len(data); {
		found := false
		for s := from; s < len(data); s++ {
			if m.Anchored() && s != 0 {
				break
			}
			if e, ok := backtrackAt(terms, data, s, m.AnchoredEnd()); ok {
				out = append(out, [2]int{s, e})
				from = e
				found = true
				break
			}
		}
		if !found {
			break
		}
	}
	return out
}

func backtrackAt(terms []Term, data []byte, pos int, end bool) (int, bool) {
	if len(terms) == 0 {
		if end && pos != len(data) {
			return 0, false
		}
		return pos, true
	}
	t := terms[0]
	n := 0
	for pos+n < len(data) && (t.Max == Unbounded || n < t.Max) && t.Set.Has(data[pos+n]) {
		n++
	}
	if n < t.Min {
		return 0, false
	}
	if t.Greedy {
		for c := n; c >= t.Min; c-- {
			if e, ok := backtrackAt(terms[1:], data, pos+c, end); ok {
				return e, true
			}
		}
		return 0, false
	}
	for c := t.Min; c <= n; c++ {
		if e, ok := backtrackAt(terms[1:], data, pos+c, end); ok {
			return e, true
		}
	}
	return 0, false
}

// findInPieces drives a Searcher with randomly sized input pieces.
func findInPieces(m *Matcher, data []byte, rng *rand.Rand) [][2]int {
	var out [][2]int
	s := m.NewSearcher(0)
	for from := 0; from < len(data); {
		s.Reset(int64(from), -1)
		var res Result
		for {
			pos := int(s.Pos())
			end := min(pos+rng.IntN(4), len(data))
			res = s.Feed(data[pos:end], end == len(data))
			if res != NeedMore {
				break
			}
		}
		if res == NotFound {
			break
		}
		start, end := s.Match()
		out = append(out, [2]int{int(start), int(end)})
		from = int(end)
	}
	return out
}

func randomPattern(rng *rand.Rand) string {
	atoms := []string{`\x00`, `\x01`, `\x02`, `[\x00\x01]`, `[^\x02]`, `.`}
	quants := []string{"", "", "?", "*", "+", "{2}", "{1,3}", "{0,2}", "{2,}", "+?", "*?", "??", "{1,3}?"}

	var b strings.Builder
	if rng.IntN(6) == 0 {
		b.WriteByte('^')
	}
	for range 1 + rng.IntN(4) {
		b.WriteString(atoms[rng.IntN(len(atoms))])
		b.WriteString(quants[rng.IntN(len(quants))])
	}
	if rng.IntN(6) == 0 {
		b.WriteByte('$')
	}
	return b.String()
}

func TestSearcher_MatchesBacktracking(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	checked := 0
	for checked < 400 {
		expr := randomPattern(rng)
		m, err := Compile(expr)
		if err != nil {
			continue
		}
		checked++

		data := make([]byte, rng.IntN(24))
		for i := range data {
			data[i] = byte(rng.IntN(3))
		}

		want := backtrack(m, data)
		require.Equal(t, want, m.FindAll(data), "expr %s data %x", expr, data)
		require.Equal(t, want, findInPieces(m, data, rng), "pieces: expr %s data %x", expr, data)
	}
}

func TestSearcher_NeedMore(t *testing.T) {
	m := MustCompile(`\xFF+`)
	s := m.NewSearcher(0)
	s.Reset(0, -1)

	assert.Equal(t, NeedMore, s.Feed([]byte{0xFF, 0xFF}, false))
	assert.True(t, s.Pending())
	assert.Equal(t, int64(0), s.KeepFrom())
	assert.Equal(t, int64(2), s.Pos())

	assert.Equal(t, Found, s.Feed([]byte{0x00, 0xFF}, false))
	start, end := s.Match()
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(2), end)
}

func TestSearcher_KeepFrom(t *testing.T) {
	m := MustCompile(`\x41\x42\x43`)
	s := m.NewSearcher(0)
	s.Reset(0, -1)

	assert.Equal(t, NeedMore, s.Feed([]byte("xxAB"), false))
	assert.Equal(t, int64(2), s.KeepFrom())

	assert.Equal(t, NeedMore, s.Feed([]byte("x"), false))
	assert.False(t, s.Pending())
	assert.Equal(t, int64(5), s.KeepFrom())
}

func TestSearcher_Limit(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		data      string
		from      int64
		limit     int64
		want      Result
		wantStart int64
		wantEnd   int64
	}{
		{name: "match before limit", expr: `ABC`, data: "ABCABC", from: 0, limit: 1, want: Found, wantStart: 0, wantEnd: 3},
		{name: "match at later start", expr: `ABC`, data: "ABCABC", from: 3, limit: 4, want: Found, wantStart: 3, wantEnd: 6},
		{name: "match starts at limit", expr: `ABC`, data: "ABCABC", from: 1, limit: 3, want: NotFound},
		{name: "match extends past limit", expr: `\xFF+`, data: "\xFF\xFF\xFF\xFF", from: 0, limit: 1, want: Found, wantStart: 0, wantEnd: 4},
		{name: "unbounded", expr: `C`, data: "ABCABC", from: 3, limit: -1, want: Found, wantStart: 5, wantEnd: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MustCompile(tt.expr).NewSearcher(0)
			s.Reset(tt.from, tt.limit)
			got := s.Feed([]byte(tt.data)[tt.from:], true)
			require.Equal(t, tt.want, got)
			if got == Found {
				start, end := s.Match()
				assert.Equal(t, tt.wantStart, start)
				assert.Equal(t, tt.wantEnd, end)
			}
		})
	}
}

func TestSearcher_LimitDecidesWithoutEOF(t *testing.T) {
	s := MustCompile(`A`).NewSearcher(0)
	s.Reset(0, 2)
	assert.Equal(t, NotFound, s.Feed([]byte("xxxx"), false))
}

func TestSearcher_Origin(t *testing.T) {
	m := MustCompile(`^\x4D\x5A`)
	data := []byte("..MZMZ")

	s := m.NewSearcher(2)
	s.Reset(2, -1)
	require.Equal(t, Found, s.Feed(data[2:], true))
	start, end := s.Match()
	assert.Equal(t, int64(2), start)
	assert.Equal(t, int64(4), end)

	s.Reset(4, -1)
	assert.Equal(t, NotFound, s.Feed(data[4:], true))
}

func TestResult_String(t *testing.T) {
	for r, want := range map[Result]string{NeedMore: "need-more", Found: "found", NotFound: "not-found"} {
		assert.Equal(t, want, r.String(), fmt.Sprint(int(r)))
	}
}
