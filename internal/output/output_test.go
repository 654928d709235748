package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/hxgrep/internal/pattern"
	"github.com/coral-mesh/hxgrep/internal/render"
	"github.com/coral-mesh/hxgrep/internal/scan"
	"github.com/coral-mesh/hxgrep/internal/source"
)

func testMatches() []scan.Match {
	return []scan.Match{
		{Offset: 4, Length: 5, Data: []byte("Hello"), Preview: []byte("Hello world")},
		{Offset: 32, Length: 2, Data: []byte{0x00, 0xFF}, Preview: []byte{0x00, 0xFF}},
	}
}

func writeAll(t *testing.T, format Format, matches []scan.Match, blocks []scan.Block) string {
	t.Helper()

	cfg := render.DefaultConfig()
	cfg.Color = render.ColorNever

	var buf bytes.Buffer
	sink, err := NewSink(format, &buf, cfg)
	require.NoError(t, err)

	sink.Begin("disk.bin", 64, true, 0)
	for _, m := range matches {
		require.NoError(t, sink.Match(m))
	}
	for _, b := range blocks {
		require.NoError(t, sink.Block(b))
	}
	require.NoError(t, sink.Close())
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "json", want: FormatJSON},
		{in: "CSV", want: FormatCSV},
		{in: "plain", want: FormatPlain},
		{in: "", want: FormatHex},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMatchRecord(t *testing.T) {
	rec := NewMatchRecord("a.bin", testMatches()[0], " ")
	assert.Equal(t, "48 65 6C 6C 6F", rec.HexData)
	require.NotNil(t, rec.ASCIIData)
	assert.Equal(t, "Hello", *rec.ASCIIData)
	assert.Len(t, rec.Digest, 16)

	rec = NewMatchRecord("a.bin", testMatches()[1], " ")
	assert.Nil(t, rec.ASCIIData)

	line := NewLineRecord("a.bin", scan.Block{Offset: 16, Data: []byte("Hello World!")}, "")
	assert.Equal(t, 12, line.ByteCount)
	require.NotNil(t, line.ASCIIData)
	assert.Equal(t, "Hello World!", *line.ASCIIData)
}

func TestJSONSink(t *testing.T) {
	out := writeAll(t, FormatJSON, testMatches(), nil)

	var records []MatchRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "disk.bin", records[0].FilePath)
	assert.Equal(t, int64(32), records[1].Offset)
	assert.Equal(t, "00 FF", records[1].HexData)

	assert.Equal(t, "[]\n", writeAll(t, FormatJSON, nil, nil))
}

func TestCSVSink(t *testing.T) {
	out := writeAll(t, FormatCSV, testMatches(), nil)

	rows, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"file_path", "offset", "hex_data", "length", "ascii_data"}, rows[0])
	assert.Equal(t, []string{"disk.bin", "4", "48 65 6C 6C 6F", "5", "Hello"}, rows[1])
	assert.Equal(t, []string{"disk.bin", "32", "00 FF", "2", ""}, rows[2])

	out = writeAll(t, FormatCSV, nil, []scan.Block{{Offset: 0, Data: []byte{0x41}}})
	rows, err = csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"file_path", "offset", "hex_data", "byte_count", "ascii_data"}, rows[0])
}

func TestPlainSink(t *testing.T) {
	out := writeAll(t, FormatPlain, testMatches(), nil)
	assert.Equal(t, "disk.bin:4 48 65 6C 6C 6F\ndisk.bin:32 00 FF\n", out)
}

func TestHexSink(t *testing.T) {
	out := writeAll(t, FormatHex, testMatches(), []scan.Block{{Offset: 48, Data: []byte{0x01}}})
	assert.Equal(t, "04h : 48 65 6C 6C 6F 20 77 6F 72 6C 64\n20h : 00 FF\n30h : 01\n", out)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var schemas map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &schemas))
	require.Contains(t, schemas, "match")
	require.Contains(t, schemas, "line")

	props, ok := schemas["match"]["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "hex_data")
	assert.Contains(t, props, "ascii_data")
}

func plainConfig() render.Config {
	cfg := render.DefaultConfig()
	cfg.Color = render.ColorNever
	return cfg
}

func TestWriteMatches(t *testing.T) {
	data := []byte("XXABCYYABC")
	m := pattern.MustCompile(`\x41\x42\x43`)

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers%d", workers), func(t *testing.T) {
			s, err := scan.Search(context.Background(), m, source.NewMemory("mem", data), scan.Options{Workers: workers, ChunkSize: 3})
			require.NoError(t, err)

			var buf bytes.Buffer
			sink, err := NewSink(FormatHex, &buf, plainConfig())
			require.NoError(t, err)
			sink.Begin("mem", int64(len(data)), true, 0)

			n, err := WriteMatches(sink, s)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assert.Equal(t, "2h : 41 42 43 59 59 41 42 43\n7h : 41 42 43\n", buf.String())
		})
	}
}

func TestWriteMatches_Limit(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, 4096)
	m := pattern.MustCompile(`\x01`)

	for _, format := range []Format{FormatHex, FormatPlain, FormatCSV} {
		for _, workers := range []int{1, 4} {
			t.Run(fmt.Sprintf("%s/workers%d", format, workers), func(t *testing.T) {
				s, err := scan.Search(context.Background(), m, source.NewMemory("mem", data), scan.Options{Workers: workers, ChunkSize: 64})
				require.NoError(t, err)

				var buf bytes.Buffer
				sink, err := NewSink(format, &buf, plainConfig())
				require.NoError(t, err)
				sink.Begin("mem", int64(len(data)), true, 3)

				n, err := WriteMatches(sink, s)
				require.NoError(t, err)
				assert.Equal(t, 3, n)
				assert.True(t, sink.Done())
				assert.False(t, s.Next())
				require.NoError(t, sink.Close())

				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				if format == FormatCSV {
					lines = lines[1:]
				}
				assert.Len(t, lines, 3)
			})
		}
	}
}

func TestWriteBlocks(t *testing.T) {
	data := []byte{0x4D, 0x5A, 0x90, 0x00, 0x03}
	s, err := scan.Dump(context.Background(), source.NewMemory("mem", data), scan.Options{Width: 2})
	require.NoError(t, err)

	cfg := plainConfig()
	cfg.Width = 2
	var buf bytes.Buffer
	sink, err := NewSink(FormatHex, &buf, cfg)
	require.NoError(t, err)
	sink.Begin("mem", int64(len(data)), true, 0)

	n, err := WriteBlocks(sink, s)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "0h : 4D 5A\n2h : 90 00\n4h : 03\n", buf.String())
}

func TestHexSink_FlushPerInput(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewSink(FormatHex, &buf, plainConfig())
	require.NoError(t, err)

	sink.Begin("a", 16, true, 1)
	require.NoError(t, sink.Block(scan.Block{Offset: 1, Data: []byte{0xAA}}))
	assert.True(t, sink.Done())
	require.NoError(t, sink.Flush())
	buf.WriteString("--\n")

	sink.Begin("b", 16, true, 0)
	assert.False(t, sink.Done())
	require.NoError(t, sink.Block(scan.Block{Offset: 2, Data: []byte{0xBB}}))
	require.NoError(t, sink.Close())
	assert.Equal(t, "01h : AA\n--\n02h : BB\n", buf.String())
}
