// Package clock delivers the once-per-second ticks that drive the engines.
package clock

import (
	"context"
	"time"
)

// Clock produces a tick per elapsed second. The value is the number of ticks
// delivered so far, starting at 1. The channel is closed when ctx is done.
type Clock interface {
	Start(ctx context.Context) <-chan int
}

// Ticker is the wall-clock implementation. Ticks missed while the process
// was suspended or the consumer was busy are dropped, never replayed.
type Ticker struct {
	Interval time.Duration // defaults to one second
}

// Start implements Clock.
func (t Ticker) Start(ctx context.Context) <-chan int {
	interval := t.Interval
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan int)

	go func() {
		defer close(out)
		tk := time.NewTicker(interval)
		defer tk.Stop()

		seconds := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				seconds++
				select {
				case out <- seconds:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Manual is a Clock driven by Advance, for tests.
type Manual struct {
	ch      chan int
	seconds int
}

// NewManual returns a manual clock with room for buffer undelivered ticks.
func NewManual(buffer int) *Manual {
	return &Manual{ch: make(chan int, buffer)}
}

// Start implements Clock. The channel is closed by Close, not by ctx.
func (m *Manual) Start(context.Context) <-chan int { return m.ch }

// Advance queues n ticks.
func (m *Manual) Advance(n int) {
	for i := 0; i < n; i++ {
		m.seconds++
		m.ch <- m.seconds
	}
}

// Close ends the tick stream.
func (m *Manual) Close() { close(m.ch) }
