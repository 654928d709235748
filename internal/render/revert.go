package render

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

const offsetDelim = " : "

// ParseLine recovers the bytes of one rendered line. The offset column is
// optional; sep must be the separator the line was rendered with.
func ParseLine(line, sep string) ([]byte, error) {
	line = strings.TrimRight(line, "\r\n")
	if i := strings.Index(line, offsetDelim); i >= 0 && strings.HasSuffix(line[:i], "h") {
		line = line[i+len(offsetDelim):]
	}
	if line == "" {
		return nil, nil
	}

	digits := line
	if sep != "" {
		digits = strings.Join(strings.Split(line, sep), "")
	}
	digits = strings.TrimSpace(digits)
	b, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid hex line %q: %w", line, err)
	}
	return b, nil
}

// Revert reads rendered lines from r and writes the raw bytes to w. Blank
// lines and multi-file headers are skipped.
func Revert(r io.Reader, w io.Writer, sep string) (int64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 1<<20)

	bw := bufio.NewWriter(w)
	var total int64
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "===") {
			continue
		}
		b, err := ParseLine(line, sep)
		if err != nil {
			return total, fmt.Errorf("line %d: %w", n, err)
		}
		if _, err := bw.Write(b); err != nil {
			return total, err
		}
		total += int64(len(b))
	}
	if err := sc.Err(); err != nil {
		return total, err
	}
	return total, bw.Flush()
}
