// Package buffer manages the reusable read buffers of a scan and the cursors
// that fill them from a source.
package buffer

import (
	"sync"
	"sync/atomic"
)

// Buffer is a byte slice with a filled prefix. Bytes past the filled
// prefix are zero.
type Buffer struct {
	data []byte
	n    int
}

// Bytes returns the filled prefix.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Len is the length of the filled prefix.
func (b *Buffer) Len() int { return b.n }

// Cap is the number of bytes the buffer can hold.
func (b *Buffer) Cap() int { return len(b.data) }

// Free returns the unfilled tail.
func (b *Buffer) Free() []byte { return b.data[b.n:] }

// SetLen sets the filled prefix to n bytes and zeroes the rest.
func (b *Buffer) SetLen(n int) {
	b.n = n
	clear(b.data[n:])
}

// Consume drops the first n filled bytes and moves the remainder to the
// front.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= b.n {
		b.SetLen(0)
		return
	}
	copy(b.data, b.data[n:b.n])
	b.SetLen(b.n - n)
}

// Grow makes room for at least n more bytes, keeping the filled prefix.
func (b *Buffer) Grow(n int) {
	if len(b.data)-b.n >= n {
		return
	}
	grown := make([]byte, max(2*len(b.data), b.n+n))
	copy(grown, b.data[:b.n])
	b.data = grown
}

// Pool recycles buffers of a fixed size. It is safe for concurrent use.
type Pool struct {
	size        int
	pool        sync.Pool
	outstanding atomic.Int64
}

// NewPool returns a pool of size-byte buffers.
func NewPool(size int) *Pool {
	return &Pool{size: size}
}

// Size is the capacity of pooled buffers.
func (p *Pool) Size() int { return p.size }

// Acquire returns an empty buffer able to hold n bytes. Requests larger
// than the pool size are served by a fresh allocation.
func (p *Pool) Acquire(n int) *Buffer {
	p.outstanding.Add(1)
	if n > p.size {
		return &Buffer{data: make([]byte, n)}
	}
	if v := p.pool.Get(); v != nil {
		b := v.(*Buffer)
		b.SetLen(0)
		return b
	}
	return &Buffer{data: make([]byte, p.size)}
}

// Release returns b to the pool. b must not be used afterwards.
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}
	p.outstanding.Add(-1)
	if len(b.data) != p.size {
		return
	}
	p.pool.Put(b)
}

// Outstanding is the number of acquired buffers not yet released.
func (p *Pool) Outstanding() int64 { return p.outstanding.Load() }
