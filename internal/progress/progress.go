// Package progress draws a byte-count progress line on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"
)

// DefaultInterval is the redraw period.
const DefaultInterval = 100 * time.Millisecond

// Indicator tracks scanned bytes and redraws a progress line periodically.
// Add is safe for concurrent use.
type Indicator struct {
	w        io.Writer
	total    int64
	done     atomic.Int64
	start    time.Time
	interval time.Duration
	bar      progress.Model

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Enabled reports whether a progress line should be drawn on w: only when
// requested and w is a terminal.
func Enabled(requested bool, w io.Writer) bool {
	f, ok := w.(*os.File)
	return requested && ok && term.IsTerminal(int(f.Fd()))
}

// New returns an indicator for total bytes writing to w. Start begins
// drawing.
func New(w io.Writer, total int64) *Indicator {
	return &Indicator{
		w:        w,
		total:    total,
		interval: DefaultInterval,
		bar: progress.New(
			progress.WithWidth(20),
			progress.WithoutPercentage(),
		),
		stop: make(chan struct{}),
	}
}

// Add records n more scanned bytes.
func (p *Indicator) Add(n int64) { p.done.Add(n) }

// Done is the number of bytes recorded so far.
func (p *Indicator) Done() int64 { return p.done.Load() }

// Start draws the line every interval until Finish is called.
func (p *Indicator) Start() {
	p.start = time.Now()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.draw()
			}
		}
	}()
}

// Finish stops redrawing and leaves the final state on its own line.
func (p *Indicator) Finish() {
	p.once.Do(func() {
		close(p.stop)
		p.wg.Wait()
		p.draw()
		_, _ = fmt.Fprintln(p.w)
	})
}

func (p *Indicator) draw() {
	_, _ = fmt.Fprintf(p.w, "\r%s", p.Line(time.Since(p.start)))
}

// Line renders the progress line for the given elapsed time.
func (p *Indicator) Line(elapsed time.Duration) string {
	done := p.Done()
	pct := 0.0
	if p.total > 0 {
		pct = min(float64(done)/float64(p.total), 1)
	}
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(done) / s
	}
	return fmt.Sprintf("%s %3.0f%% (%s/%s) %s/s",
		p.bar.ViewAs(pct), pct*100, FormatBytes(float64(done)), FormatBytes(float64(p.total)), FormatBytes(rate))
}

// FormatBytes renders n with a binary unit and one decimal.
func FormatBytes(n float64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for n >= 1024 && i < len(units)-1 {
		n /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", n, units[i])
}
