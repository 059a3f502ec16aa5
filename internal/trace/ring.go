package trace

import (
	"container/ring"
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory for post-mortem dumps.
type RingTracer struct {
	mu    sync.Mutex
	next  *ring.Ring // slot written by the next Emit
	size  int
	level Level
}

// NewRingTracer keeps up to size events. A non-positive size means 4096.
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = defaultRingSize
	}
	return &RingTracer{next: ring.New(size), size: size, level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if ev == nil || !t.level.ShouldEmit(ev.Scope, ev.Kind) {
		return
	}
	stored := *ev
	t.mu.Lock()
	t.next.Value = stored
	t.next = t.next.Next()
	t.mu.Unlock()
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	return t.collect(func(*Event) bool { return true })
}

// ForDocument returns the stored events attributed to uri, oldest first.
func (t *RingTracer) ForDocument(uri string) []Event {
	return t.collect(func(ev *Event) bool { return ev.URI == uri })
}

func (t *RingTracer) collect(keep func(*Event) bool) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, 0, t.size)
	// next is the oldest slot once the ring has wrapped; empty slots are nil.
	t.next.Do(func(v any) {
		if ev, ok := v.(Event); ok && keep(&ev) {
			out = append(out, ev)
		}
	})
	return out
}

// Dump writes the stored events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
