package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Progress prints a single self-overwriting status line while a bulk
// operation advances in batches.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	total   int64
	done    int64
	batches int
	since   time.Time
}

// NewProgress returns a Progress writing to w, or to os.Stderr when w is nil.
func NewProgress(w io.Writer, label string) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{w: w, label: label}
}

// Begin resets the counters for an operation over total items.
func (p *Progress) Begin(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.done, p.batches = total, 0, 0
	p.since = time.Now()
	p.line()
}

// Advance records a completed batch of n items.
func (p *Progress) Advance(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = min(p.done+n, p.total)
	p.batches++
	p.line()
}

// Done completes the line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = p.total
	p.line()
	fmt.Fprintf(p.w, " in %s\n", time.Since(p.since).Round(time.Millisecond))
}

// Fail terminates the line with err.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\n✗ %s failed at %d/%d: %v\n", p.label, p.done, p.total, err)
}

func (p *Progress) line() {
	if p.total <= 0 {
		return
	}
	pct := float64(p.done) * 100 / float64(p.total)
	fmt.Fprintf(p.w, "\r%s %d/%d (%.1f%%, %d batches)", p.label, p.done, p.total, pct, p.batches)
}
