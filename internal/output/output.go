// Package output writes scan results as hex dump lines or as structured
// records (JSON, CSV or plain text).
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/render"
	"github.com/coral-mesh/hxgrep/internal/scan"
)

// Format represents the desired output format.
type Format string

const (
	FormatHex   Format = "hex"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatPlain Format = "plain"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatHex, FormatJSON, FormatCSV, FormatPlain:
		return f, nil
	case "":
		return FormatHex, nil
	}
	return "", &errors.ConfigError{Field: "format", Value: s, Msg: "must be hex, json, csv or plain"}
}

// MatchRecord is the structured form of one match.
type MatchRecord struct {
	FilePath  string  `json:"file_path" header:"file_path" jsonschema:"description=Path of the scanned input"`
	Offset    int64   `json:"offset" header:"offset" jsonschema:"description=Byte offset of the first matched byte"`
	HexData   string  `json:"hex_data" header:"hex_data" jsonschema:"description=Matched bytes in hexadecimal"`
	Length    int64   `json:"length" header:"length" jsonschema:"description=Number of matched bytes"`
	ASCIIData *string `json:"ascii_data" header:"ascii_data" jsonschema:"description=Matched bytes as text when all are printable"`
	Digest    string  `json:"xxh3,omitempty" jsonschema:"description=XXH3-64 of the matched bytes in hexadecimal"`
}

// LineRecord is the structured form of one dump line.
type LineRecord struct {
	FilePath  string  `json:"file_path" header:"file_path" jsonschema:"description=Path of the scanned input"`
	Offset    int64   `json:"offset" header:"offset" jsonschema:"description=Byte offset of the line"`
	HexData   string  `json:"hex_data" header:"hex_data" jsonschema:"description=Line bytes in hexadecimal"`
	ByteCount int     `json:"byte_count" header:"byte_count" jsonschema:"description=Number of bytes on the line"`
	ASCIIData *string `json:"ascii_data" header:"ascii_data" jsonschema:"description=Line bytes as text when all are printable"`
}

// NewMatchRecord builds the record of m found in path.
func NewMatchRecord(path string, m scan.Match, sep string) MatchRecord {
	return MatchRecord{
		FilePath:  path,
		Offset:    m.Offset,
		HexData:   render.FormatBytes(m.Data, sep),
		Length:    m.Length,
		ASCIIData: printable(m.Data),
		Digest:    fmt.Sprintf("%016x", xxh3.Hash(m.Data)),
	}
}

// NewLineRecord builds the record of dump block b read from path.
func NewLineRecord(path string, b scan.Block, sep string) LineRecord {
	return LineRecord{
		FilePath:  path,
		Offset:    b.Offset,
		HexData:   render.FormatBytes(b.Data, sep),
		ByteCount: len(b.Data),
		ASCIIData: printable(b.Data),
	}
}

// printable returns b as text when every byte is graphic ASCII or a space.
func printable(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return nil
		}
	}
	s := string(b)
	return &s
}

// Sink consumes the results of one or more scans.
type Sink interface {
	// Begin starts a new input of the given size. limit caps the records
	// written for it; 0 means unbounded.
	Begin(path string, size int64, known bool, limit int)
	Match(m scan.Match) error
	Block(b scan.Block) error
	// Done reports whether the current input reached its limit.
	Done() bool
	// Flush writes buffered records of the current input.
	Flush() error
	// Close finishes the output.
	Close() error
}

// NewSink returns a sink writing format to w.
func NewSink(format Format, w io.Writer, cfg render.Config) (Sink, error) {
	switch format {
	case FormatHex:
		return &hexSink{w: w, cfg: cfg}, nil
	case FormatJSON:
		return &jsonSink{w: w, sep: cfg.Separator}, nil
	case FormatCSV:
		return &csvSink{w: csv.NewWriter(w), sep: cfg.Separator}, nil
	case FormatPlain:
		return &plainSink{w: w, sep: cfg.Separator}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteMatches copies the matches of s to sink until s ends or the sink is
// done, then stops the scan. It returns the number of records written.
func WriteMatches(sink Sink, s *scan.Stream[scan.Match]) (int, error) {
	return drain(sink, s, sink.Match)
}

// WriteBlocks copies the dump blocks of s to sink like WriteMatches.
func WriteBlocks(sink Sink, s *scan.Stream[scan.Block]) (int, error) {
	return drain(sink, s, sink.Block)
}

func drain[T any](sink Sink, s *scan.Stream[T], write func(T) error) (int, error) {
	defer func() { _ = s.Close() }()

	n := 0
	for !sink.Done() && s.Next() {
		if err := write(s.Value()); err != nil {
			return n, fmt.Errorf("write output: %w", err)
		}
		n++
	}
	if err := sink.Flush(); err != nil {
		return n, fmt.Errorf("write output: %w", err)
	}
	return n, s.Err()
}

// counter tracks the records written for the current input.
type counter struct {
	limit int
	n     int
}

func (c *counter) begin(limit int) { c.limit, c.n = limit, 0 }
func (c *counter) add()            { c.n++ }
func (c *counter) Done() bool      { return c.limit > 0 && c.n >= c.limit }

type hexSink struct {
	w   io.Writer
	cfg render.Config
	r   *render.Renderer
}

func (s *hexSink) Begin(_ string, size int64, known bool, limit int) {
	if s.r != nil {
		_ = s.r.Flush()
	}
	cfg := s.cfg
	cfg.LineCount = limit
	s.r = render.New(s.w, cfg, size, known)
}

func (s *hexSink) Match(m scan.Match) error { return s.r.Match(m) }
func (s *hexSink) Block(b scan.Block) error { return s.r.Block(b) }
func (s *hexSink) Done() bool               { return s.r != nil && s.r.Done() }

func (s *hexSink) Flush() error {
	if s.r == nil {
		return nil
	}
	return s.r.Flush()
}

func (s *hexSink) Close() error { return s.Flush() }

// jsonSink writes one indented JSON array holding every record.
type jsonSink struct {
	counter
	w     io.Writer
	sep   string
	path  string
	count int
}

func (s *jsonSink) Begin(path string, _ int64, _ bool, limit int) {
	s.path = path
	s.begin(limit)
}

func (s *jsonSink) Match(m scan.Match) error {
	return s.write(NewMatchRecord(s.path, m, s.sep))
}

func (s *jsonSink) Block(b scan.Block) error {
	return s.write(NewLineRecord(s.path, b, s.sep))
}

func (s *jsonSink) write(v any) error {
	data, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return err
	}
	prefix := ",\n  "
	if s.count == 0 {
		prefix = "[\n  "
	}
	s.count++
	s.add()
	if _, err := io.WriteString(s.w, prefix); err != nil {
		return err
	}
	_, err = s.w.Write(data)
	return err
}

func (s *jsonSink) Flush() error { return nil }

func (s *jsonSink) Close() error {
	closing := "\n]\n"
	if s.count == 0 {
		closing = "[]\n"
	}
	_, err := io.WriteString(s.w, closing)
	return err
}

// csvSink writes a header row for the first record kind it sees.
type csvSink struct {
	counter
	w      *csv.Writer
	sep    string
	path   string
	header bool
}

func (s *csvSink) Begin(path string, _ int64, _ bool, limit int) {
	s.path = path
	s.begin(limit)
}

func (s *csvSink) Match(m scan.Match) error {
	return s.write(NewMatchRecord(s.path, m, s.sep))
}

func (s *csvSink) Block(b scan.Block) error {
	return s.write(NewLineRecord(s.path, b, s.sep))
}

func (s *csvSink) write(v any) error {
	val := reflect.ValueOf(v)
	if !s.header {
		if err := s.w.Write(getHeaders(val.Type())); err != nil {
			return err
		}
		s.header = true
	}
	s.add()
	return s.w.Write(getRowValues(val))
}

func (s *csvSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

func (s *csvSink) Close() error { return s.Flush() }

type plainSink struct {
	counter
	w    io.Writer
	sep  string
	path string
}

func (s *plainSink) Begin(path string, _ int64, _ bool, limit int) {
	s.path = path
	s.begin(limit)
}

func (s *plainSink) Match(m scan.Match) error {
	return s.line(m.Offset, m.Data)
}

func (s *plainSink) Block(b scan.Block) error {
	return s.line(b.Offset, b.Data)
}

func (s *plainSink) line(off int64, data []byte) error {
	s.add()
	_, err := fmt.Fprintf(s.w, "%s:%d %s\n", s.path, off, render.FormatBytes(data, s.sep))
	return err
}

func (s *plainSink) Flush() error { return nil }
func (s *plainSink) Close() error { return nil }

func getHeaders(t reflect.Type) []string {
	var headers []string
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("header"); tag != "" {
			headers = append(headers, tag)
		}
	}
	return headers
}

func getRowValues(v reflect.Value) []string {
	var values []string
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Tag.Get("header") == "" {
			continue
		}
		val := v.Field(i)
		if val.Kind() == reflect.Ptr {
			if val.IsNil() {
				values = append(values, "")
				continue
			}
			val = val.Elem()
		}
		values = append(values, fmt.Sprintf("%v", val.Interface()))
	}
	return values
}
