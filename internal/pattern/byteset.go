package pattern

import "math/bits"

// ByteSet is a set of byte values.
type ByteSet [4]uint64

// FullSet returns a set holding all 256 byte values.
func FullSet() ByteSet {
	return ByteSet{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}
}

// Add inserts b.
func (s *ByteSet) Add(b byte) {
	s[b>>6] |= 1 << (b & 63)
}

// AddRange inserts every byte in [lo, hi].
func (s *ByteSet) AddRange(lo, hi byte) {
	for c := int(lo); c <= int(hi); c++ {
		s.Add(byte(c))
	}
}

// Union adds every member of o.
func (s *ByteSet) Union(o ByteSet) {
	for i := range s {
		s[i] |= o[i]
	}
}

// Negate replaces the set with its complement.
func (s *ByteSet) Negate() {
	for i := range s {
		s[i] = ^s[i]
	}
}

// Has reports whether b is a member.
func (s *ByteSet) Has(b byte) bool {
	return s[b>>6]&(1<<(b&63)) != 0
}

// Len returns the number of members.
func (s *ByteSet) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Single returns the only member when the set has exactly one.
func (s *ByteSet) Single() (byte, bool) {
	if s.Len() != 1 {
		return 0, false
	}
	for i, w := range s {
		if w != 0 {
			return byte(i*64 + bits.TrailingZeros64(w)), true
		}
	}
	return 0, false
}
