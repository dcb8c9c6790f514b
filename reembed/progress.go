package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports reembedding progress on a single rewritable line.
// It reports whenever an interval boundary is crossed and always when the
// final chunk lands, so a run whose tail is shorter than the interval still
// ends with a completion line.
type ProgressTracker struct {
	mu       sync.Mutex
	out      io.Writer
	total    int
	interval int

	current      int
	lastReported int
	startedAt    time.Time
	running      bool
}

// NewProgressTracker creates a tracker over total chunks, reporting to out
// (typically os.Stderr) every interval chunks.
func NewProgressTracker(out io.Writer, total, interval int) *ProgressTracker {
	return &ProgressTracker{
		out:      out,
		total:    total,
		interval: interval,
	}
}

// Start resets the tracker and begins timing. Update and Increment are
// no-ops until Start is called.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = time.Now()
	p.running = true
	p.current = 0
	p.lastReported = 0
}

// Update sets the absolute progress, capped at the total.
func (p *ProgressTracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.advance(current)
}

// Increment adds delta to the current progress, capped at the total.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.advance(p.current + delta)
}

// Finish forces the completion line and terminates it with a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.out)
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return 0
	}
	return time.Since(p.startedAt)
}

// advance moves progress to the given value and reports when an interval
// boundary or the total is reached. Caller holds the lock.
func (p *ProgressTracker) advance(to int) {
	if to > p.total {
		to = p.total
	}
	p.current = to

	crossedInterval := p.current-p.lastReported >= p.interval
	reachedTotal := p.current == p.total && p.lastReported != p.total
	if crossedInterval || reachedTotal {
		p.report()
		p.lastReported = p.current
	}
}

// report prints the current progress line. Caller holds the lock.
func (p *ProgressTracker) report() {
	rate := float64(p.current) / time.Since(p.startedAt).Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.out, "\rProgress: %d/%d (%.1f%%) - %.1f chunks/s",
		p.current, p.total, percentage, rate)
}
