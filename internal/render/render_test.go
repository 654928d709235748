package render

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hxgrep/internal/scan"
	"github.com/coral-mesh/hxgrep/internal/source"
	"github.com/coral-mesh/hxgrep/internal/testutil"
)

func plainConfig() Config {
	cfg := DefaultConfig()
	cfg.Color = ColorNever
	return cfg
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		data []byte
		sep  string
		want string
	}{
		{data: []byte{0x4D, 0x5A, 0x90, 0x00}, sep: " ", want: "4D 5A 90 00"},
		{data: []byte{0x4D, 0x5A, 0x90, 0x00}, sep: "-", want: "4D-5A-90-00"},
		{data: []byte{0xAB, 0xCD}, sep: "", want: "ABCD"},
		{data: []byte{0x0F}, sep: ", ", want: "0F"},
		{data: nil, sep: " ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.data, tt.sep))
		})
	}
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "00000010h", FormatOffset(16, 8))
	assert.Equal(t, "FFh", FormatOffset(255, 1))
	assert.Equal(t, 3, OffsetDigits(0xABC, true))
	assert.Equal(t, 2, OffsetDigits(16, true))
	assert.Equal(t, 1, OffsetDigits(15, true))
	assert.Equal(t, 1, OffsetDigits(0, true))
	assert.Equal(t, UnknownSizeDigits, OffsetDigits(0, false))
}

func TestParseColorMode(t *testing.T) {
	for _, s := range []string{"auto", "ALWAYS", "never", ""} {
		_, err := ParseColorMode(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseColorMode("sometimes")
	assert.Error(t, err)
}

func TestRenderer_Block(t *testing.T) {
	tests := []struct {
		name  string
		cfg   func(*Config)
		block scan.Block
		size  int64
		want  string
	}{
		{
			name:  "without offset",
			cfg:   func(c *Config) { c.Width = 8; c.Separator = "-"; c.ShowOffset = false },
			block: scan.Block{Data: []byte{0x4D, 0x5A, 0x90, 0x00}},
			size:  4,
			want:  "4D-5A-90-00\n",
		},
		{
			name:  "with offset",
			cfg:   func(c *Config) {},
			block: scan.Block{Offset: 0x20, Data: []byte{0x01, 0x02}},
			size:  0x1000,
			want:  "0020h : 01 02\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := plainConfig()
			tt.cfg(&cfg)

			var buf bytes.Buffer
			r := New(&buf, cfg, tt.size, true)
			require.NoError(t, r.Block(tt.block))
			require.NoError(t, r.Flush())
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderer_LineCount(t *testing.T) {
	cfg := plainConfig()
	cfg.LineCount = 2

	var buf bytes.Buffer
	r := New(&buf, cfg, 16, true)
	for i := 0; !r.Done(); i++ {
		require.NoError(t, r.Match(scan.Match{Offset: int64(i), Length: 1, Preview: []byte{0x01}}))
	}
	require.NoError(t, r.Flush())
	assert.Equal(t, 2, r.Lines())
	assert.Equal(t, "00h : 01\n01h : 01\n", buf.String())

	cfg.LineCount = 0
	assert.False(t, New(&buf, cfg, 16, true).Done())
}

func TestRenderer_Color(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Color = ColorAlways

	var buf bytes.Buffer
	r := New(&buf, cfg, 16, true)
	require.NoError(t, r.Match(scan.Match{Offset: 1, Length: 2, Preview: []byte{0xAA, 0xBB, 0xCC}}))
	require.NoError(t, r.Flush())

	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "AA BB")
	assert.Contains(t, out, " CC\n")

	// Never mode and non-terminal writers stay plain.
	for _, mode := range []ColorMode{ColorNever, ColorAuto} {
		cfg.Color = mode
		buf.Reset()
		r := New(&buf, cfg, 16, true)
		require.NoError(t, r.Match(scan.Match{Offset: 1, Length: 2, Preview: []byte{0xAA, 0xBB, 0xCC}}))
		require.NoError(t, r.Flush())
		assert.Equal(t, "01h : AA BB CC\n", buf.String())
	}
}

func TestRoundTrip(t *testing.T) {
	data := testutil.RandomBytes(42, 1000, []byte{0x00, 0x0A, 0x20, 0x7F, 0xFF})

	for _, width := range []int{1, 7, 16, 333, 2000} {
		for _, sep := range []string{" ", "-", "", ", "} {
			for _, showOffset := range []bool{true, false} {
				name := fmt.Sprintf("w%d/sep%q/offset%v", width, sep, showOffset)
				t.Run(name, func(t *testing.T) {
					s, err := scan.Dump(context.Background(), source.NewMemory("mem", data), scan.Options{Width: width})
					require.NoError(t, err)

					cfg := plainConfig()
					cfg.Width = width
					cfg.Separator = sep
					cfg.ShowOffset = showOffset

					var rendered bytes.Buffer
					r := New(&rendered, cfg, int64(len(data)), true)
					for s.Next() {
						require.NoError(t, r.Block(s.Value()))
					}
					require.NoError(t, s.Err())
					require.NoError(t, r.Flush())

					var raw bytes.Buffer
					n, err := Revert(&rendered, &raw, sep)
					require.NoError(t, err)
					assert.Equal(t, int64(len(data)), n)
					assert.Equal(t, data, raw.Bytes())
				})
			}
		}
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		sep     string
		want    []byte
		wantErr bool
	}{
		{line: "0010h : 4D 5A", sep: " ", want: []byte{0x4D, 0x5A}},
		{line: "4d-5a-90-00", sep: "-", want: []byte{0x4D, 0x5A, 0x90, 0x00}},
		{line: "ABCD\r\n", sep: "", want: []byte{0xAB, 0xCD}},
		{line: "", sep: " ", want: nil},
		{line: "GG", sep: " ", wantErr: true},
		{line: "ABC", sep: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseLine(tt.line, tt.sep)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
