// Package scan runs compiled patterns over sources and produces matches or
// fixed-width dump blocks as lazy streams.
//
// Two execution paths produce identical output. The sequential path reads
// the source front to back in ChunkSize pieces. The coordinator splits a
// seekable source into chunks, scans them on a bounded worker pool and
// merges the per-chunk results in source order.
package scan

import (
	"runtime"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/hxgrep/internal/buffer"
	"github.com/coral-mesh/hxgrep/internal/errors"
)

const (
	// DefaultChunkSize is the size of one read piece and of one parallel chunk.
	DefaultChunkSize = 1 << 20
	// DefaultOverlapCap bounds the read-ahead added to each chunk.
	DefaultOverlapCap = 4096
	// DefaultMatchCap bounds the bytes kept in Match.Data.
	DefaultMatchCap = 64 << 10
	// DefaultWidth is the number of bytes per dump line and match preview.
	DefaultWidth = 16
	// MaxWidth is the largest accepted Width.
	MaxWidth = 8192
)

// Match is one reported occurrence of a pattern.
type Match struct {
	// Offset is the absolute position of the first matched byte.
	Offset int64
	// Length is the number of matched bytes.
	Length int64
	// Data holds the matched bytes, truncated to Options.MatchCap.
	Data []byte
	// Preview holds up to Options.Width source bytes starting at Offset.
	Preview []byte
}

// End is the offset just past the match.
func (m Match) End() int64 { return m.Offset + m.Length }

// Block is one fixed-width slice of the source in dump mode.
type Block struct {
	Offset int64
	Data   []byte
}

// Options configures a scan. The zero value selects the defaults.
type Options struct {
	// Origin is the position scanning starts at. The '^' anchor holds here.
	Origin int64
	// ChunkSize is the read piece size and the parallel chunk size.
	ChunkSize int
	// OverlapCap bounds the read-ahead past each chunk.
	OverlapCap int
	// MatchCap bounds Match.Data. On forward-only sources it also bounds the
	// bytes held for one undecided match, which is cut at that point.
	MatchCap int
	// Width is the preview length and the dump line length.
	Width int
	// Workers is the parallel worker count. Values below 2 select the
	// sequential path.
	Workers int
	// Pool supplies read buffers. A pool sized ChunkSize+OverlapCap is
	// created when nil.
	Pool *buffer.Pool
	// Progress, when set, receives the number of newly scanned bytes. It may
	// be called from several goroutines.
	Progress func(n int64)
	// Logger receives debug events.
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.OverlapCap == 0 {
		o.OverlapCap = DefaultOverlapCap
	}
	if o.MatchCap == 0 {
		o.MatchCap = DefaultMatchCap
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Workers < 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Pool == nil {
		o.Pool = buffer.NewPool(o.ChunkSize + o.OverlapCap)
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	o = o.withDefaults()
	switch {
	case o.Origin < 0:
		return &errors.ConfigError{Field: "position", Value: o.Origin, Msg: "must not be negative"}
	case o.ChunkSize < 0:
		return &errors.ConfigError{Field: "chunk size", Value: o.ChunkSize, Msg: "must be positive"}
	case o.OverlapCap < 0:
		return &errors.ConfigError{Field: "overlap cap", Value: o.OverlapCap, Msg: "must not be negative"}
	case o.MatchCap < 0:
		return &errors.ConfigError{Field: "match cap", Value: o.MatchCap, Msg: "must be positive"}
	case o.Width < 0 || o.Width > MaxWidth:
		return &errors.ConfigError{Field: "width", Value: o.Width, Msg: "must be between 1 and 8192"}
	}
	return nil
}

func (o Options) progress(n int64) {
	if o.Progress != nil && n > 0 {
		o.Progress(n)
	}
}
