// Package schedule coalesces bursts of refresh requests.
package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer owns a single pending timer. Scheduling cancels whatever is
// pending, so only the last request of a burst runs.
type Debouncer struct {
	fn func()

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	latest  atomic.Uint64
	stopped bool
}

// New returns a Debouncer that runs fn.
func New(fn func()) *Debouncer {
	return &Debouncer{fn: fn}
}

// Schedule arranges for fn to run after delay, replacing any pending run.
func (d *Debouncer) Schedule(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.seq++
	seq := d.seq
	d.latest.Store(seq)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, func() {
		d.fire(seq)
	})
}

// Now cancels any pending run and runs fn in the calling goroutine.
func (d *Debouncer) Now() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.cancelLocked()
	d.mu.Unlock()
	d.fn()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil && d.latest.Load() == d.seq && d.seq != 0
}

// Stop cancels the pending run and refuses further scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.cancelLocked()
	d.stopped = true
	d.mu.Unlock()
}

func (d *Debouncer) cancelLocked() {
	d.seq++
	d.latest.Store(0)
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(seq uint64) {
	// A timer that already fired cannot be stopped, so stale runs check the sequence.
	if seq == 0 || d.latest.Load() != seq {
		return
	}
	d.mu.Lock()
	if d.stopped || d.latest.Load() != seq {
		d.mu.Unlock()
		return
	}
	d.latest.Store(0)
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}
