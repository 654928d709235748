// Package render turns scan results into hexadecimal dump lines.
package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/coral-mesh/hxgrep/internal/errors"
	"github.com/coral-mesh/hxgrep/internal/scan"
)

// UnknownSizeDigits is the offset width used when the source length is
// unknown; it covers offsets up to 1 TiB.
const UnknownSizeDigits = 11

// ColorMode selects when output is coloured.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a colour mode name.
func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(strings.ToLower(s)); mode {
	case ColorAuto, ColorAlways, ColorNever:
		return mode, nil
	case "":
		return ColorAuto, nil
	}
	return "", &errors.ConfigError{Field: "color", Value: s, Msg: "must be auto, always or never"}
}

// Config controls line layout.
type Config struct {
	// Width is the number of bytes per line.
	Width int
	// Separator joins the hex byte pairs.
	Separator string
	// ShowOffset prefixes each line with its offset.
	ShowOffset bool
	// LineCount stops rendering after this many lines; 0 means unbounded.
	LineCount int
	// Color selects coloured output.
	Color ColorMode
}

// DefaultConfig returns the default layout: 16 bytes per line separated by
// spaces, with offsets.
func DefaultConfig() Config {
	return Config{
		Width:      scan.DefaultWidth,
		Separator:  " ",
		ShowOffset: true,
		Color:      ColorAuto,
	}
}

// FormatBytes renders b as uppercase two-digit hex joined by sep.
func FormatBytes(b []byte, sep string) string {
	const digits = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(b) * (2 + len(sep)))
	for i, c := range b {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteByte(digits[c>>4])
		sb.WriteByte(digits[c&0x0F])
	}
	return sb.String()
}

// FormatOffset renders off as zero-padded uppercase hex with an 'h' suffix.
func FormatOffset(off int64, digits int) string {
	return fmt.Sprintf("%0*Xh", digits, off)
}

// OffsetDigits is the offset width for a source of the given size.
func OffsetDigits(size int64, known bool) int {
	if !known {
		return UnknownSizeDigits
	}
	return len(fmt.Sprintf("%X", size))
}

// Renderer writes dump and match lines. It is not safe for concurrent use.
type Renderer struct {
	w      *bufio.Writer
	cfg    Config
	digits int
	lines  int

	offsetStyle lipgloss.Style
	matchStyle  lipgloss.Style
	color       bool
}

// New returns a renderer writing to w. size is the source length used to
// size the offset column.
func New(w io.Writer, cfg Config, size int64, known bool) *Renderer {
	if cfg.Width <= 0 {
		cfg.Width = scan.DefaultWidth
	}

	color := useColor(cfg.Color, w)
	lr := lipgloss.NewRenderer(w)
	if color {
		lr.SetColorProfile(termenv.ANSI)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}

	return &Renderer{
		w:           bufio.NewWriter(w),
		cfg:         cfg,
		digits:      OffsetDigits(size, known),
		offsetStyle: lr.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		matchStyle:  lr.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		color:       color,
	}
}

func useColor(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Lines is the number of lines written so far.
func (r *Renderer) Lines() int { return r.lines }

// Done reports whether the line cap has been reached.
func (r *Renderer) Done() bool {
	return r.cfg.LineCount > 0 && r.lines >= r.cfg.LineCount
}

// Block writes one dump line.
func (r *Renderer) Block(b scan.Block) error {
	return r.line(b.Offset, b.Data, 0)
}

// Match writes one match line: the preview bytes at the match offset, with
// the matched prefix highlighted.
func (r *Renderer) Match(m scan.Match) error {
	n := int(min(m.Length, int64(len(m.Preview))))
	return r.line(m.Offset, m.Preview, n)
}

func (r *Renderer) line(off int64, data []byte, highlight int) error {
	var sb strings.Builder
	if r.cfg.ShowOffset {
		offset := FormatOffset(off, r.digits)
		if r.color {
			offset = r.offsetStyle.Render(offset)
		}
		sb.WriteString(offset)
		sb.WriteString(" : ")
	}

	if r.color && highlight > 0 {
		sb.WriteString(r.matchStyle.Render(FormatBytes(data[:highlight], r.cfg.Separator)))
		if highlight < len(data) {
			sb.WriteString(r.cfg.Separator)
			sb.WriteString(FormatBytes(data[highlight:], r.cfg.Separator))
		}
	} else {
		sb.WriteString(FormatBytes(data, r.cfg.Separator))
	}
	sb.WriteByte('\n')

	if _, err := r.w.WriteString(sb.String()); err != nil {
		return err
	}
	r.lines++
	return nil
}

// Flush writes any buffered output.
func (r *Renderer) Flush() error {
	return r.w.Flush()
}
