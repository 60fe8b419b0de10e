package main

import (
	"fmt"
	"io"
	"time"
)

const progressDots = 40

// progressMonitor prints a fixed-width row of dots as games finish.
type progressMonitor struct {
	w       io.Writer
	start   time.Time
	dots    int
	started bool
	closed  bool
}

func newProgressMonitor(w io.Writer) *progressMonitor {
	return &progressMonitor{w: w, start: time.Now()}
}

// Update is called with the number of finished games. Calls must not overlap.
func (m *progressMonitor) Update(done, total int) {
	if m.closed || total <= 0 {
		return
	}
	if !m.started {
		fmt.Fprint(m.w, "Simulating ")
		m.started = true
	}

	target := min(done*progressDots/total, progressDots)
	for ; m.dots < target; m.dots++ {
		fmt.Fprint(m.w, ".")
	}

	if done >= total {
		elapsed := time.Since(m.start)
		fmt.Fprintf(m.w, " %d games in %s (%.0f games/sec)\n",
			total, elapsed.Round(time.Millisecond), float64(total)/max(elapsed.Seconds(), 1e-9))
		m.closed = true
	}
}
