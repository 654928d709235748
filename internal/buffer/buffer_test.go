package buffer

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/source"
	"github.com/coral-mesh/hxgrep/internal/testutil"
)

func TestPool_AcquireRelease(t *testing.T) {
	p := NewPool(64)

	b := p.Acquire(16)
	assert.Equal(t, 64, b.Cap())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(1), p.Outstanding())

	copy(b.Free(), "dirty bytes")
	b.SetLen(5)
	assert.Equal(t, "dirty", string(b.Bytes()))
	assert.Equal(t, make([]byte, 59), b.Free(), "unused tail must be zero")

	p.Release(b)
	assert.Equal(t, int64(0), p.Outstanding())

	again := p.Acquire(64)
	assert.Equal(t, 0, again.Len())
	assert.Equal(t, make([]byte, 64), again.Free())
	p.Release(again)
}

func TestPool_Oversized(t *testing.T) {
	p := NewPool(8)
	b := p.Acquire(100)
	assert.Equal(t, 100, b.Cap())
	p.Release(b)
	assert.Equal(t, int64(0), p.Outstanding())
}

func TestPool_Concurrent(t *testing.T) {
	p := NewPool(32)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for range 100 {
				b := p.Acquire(32)
				b.Free()[0] = byte(i)
				b.SetLen(1)
				p.Release(b)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(0), p.Outstanding())
}

func TestBuffer_ConsumeGrow(t *testing.T) {
	b := &Buffer{data: make([]byte, 8)}
	copy(b.Free(), "abcdef")
	b.SetLen(6)

	b.Consume(2)
	assert.Equal(t, "cdef", string(b.Bytes()))
	assert.Equal(t, make([]byte, 4), b.Free())

	b.Grow(10)
	assert.GreaterOrEqual(t, len(b.Free()), 10)
	assert.Equal(t, "cdef", string(b.Bytes()))

	b.Consume(100)
	assert.Equal(t, 0, b.Len())
}

func TestCursor_ReadAt(t *testing.T) {
	ctx := context.Background()
	c := NewCursor(ctx, source.NewMemory("mem", []byte("0123456789")))

	p := make([]byte, 4)
	n, err := c.ReadAt(p, 3)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(p[:n]))

	n, err = c.ReadAt(p, 8)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "89", string(p[:n]))

	n, err = c.ReadAt(p, 20)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, n)
}

func TestCursor_ReadFull(t *testing.T) {
	c := NewCursor(context.Background(), source.NewMemory("mem", []byte("0123456789")))

	require.NoError(t, c.ReadFull(make([]byte, 4), 6))

	err := c.ReadFull(make([]byte, 4), 8)
	var ioErr *errors.IOError
	require.True(t, stderrors.As(err, &ioErr))
	assert.Equal(t, 4, ioErr.Requested)
	assert.Equal(t, 2, ioErr.Got)
	assert.Equal(t, int64(8), ioErr.Offset)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestCursor_NotSeekable(t *testing.T) {
	c := NewCursor(context.Background(), source.NewStream("pipe", strings.NewReader("abc")))
	_, err := c.ReadAt(make([]byte, 2), 0)
	assert.ErrorIs(t, err, errors.ErrNotSeekable)
	assert.Equal(t, errors.KindIO, errors.KindOf(err))
}

func TestCursor_ReadSequential(t *testing.T) {
	c := NewCursor(context.Background(), source.NewMemory("mem", []byte("abcdefghij")))
	require.NoError(t, c.Skip(2))

	p := make([]byte, 5)
	n, err := c.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "cdefg", string(p[:n]))
	assert.Equal(t, int64(7), c.Pos())

	n, err = c.Read(p)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "hij", string(p[:n]))
	assert.Equal(t, int64(10), c.Pos())
}

func TestCursor_ReadStream(t *testing.T) {
	src := source.NewStream("pipe", &testutil.ChunkedReader{R: strings.NewReader("abcdefghij"), N: 3})
	c := NewCursor(context.Background(), src)
	require.NoError(t, c.Skip(2))

	// A pipe read returns what has arrived instead of waiting for p to fill.
	p := make([]byte, 5)
	var got []string
	for {
		n, err := c.Read(p)
		if n > 0 {
			got = append(got, string(p[:n]))
		}
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NotZero(t, n)
	}
	assert.Equal(t, []string{"cde", "fgh", "ij"}, got)
	assert.Equal(t, int64(10), c.Pos())
}

func TestCursor_Fill(t *testing.T) {
	pool := NewPool(6)
	c := NewCursor(context.Background(), source.NewMemory("mem", []byte("abcdefgh")))

	b := pool.Acquire(6)
	defer pool.Release(b)

	n, err := c.Fill(b, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcdef", string(b.Bytes()))

	b.Consume(4)
	n, err = c.Fill(b, 6)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "efgh", string(b.Bytes()))
}

func TestCursor_ReadError(t *testing.T) {
	boom := stderrors.New("media error")
	src := testutil.NewFaultySource([]byte("0123456789"), 5, boom)
	c := NewCursor(context.Background(), src)

	n, err := c.ReadAt(make([]byte, 4), 3)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, boom)

	var ioErr *errors.IOError
	require.True(t, stderrors.As(err, &ioErr))
	assert.Equal(t, int64(3), ioErr.Offset)
	assert.Equal(t, 4, ioErr.Requested)
	assert.Equal(t, 2, ioErr.Got)
}

func TestCursor_RetriesInterruptedReads(t *testing.T) {
	src := testutil.NewFaultySource([]byte("0123456789"), -1, nil)
	src.Interrupts = 2
	c := NewCursor(context.Background(), src)

	p := make([]byte, 3)
	n, err := c.ReadAt(p, 0)
	require.NoError(t, err)
	assert.Equal(t, "012", string(p[:n]))
	assert.Equal(t, 3, src.Reads())
}
