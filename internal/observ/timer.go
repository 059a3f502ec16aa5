// Package observ times the phases of a command run.
package observ

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"inlinelens/internal/trace"
)

// Phase is one timed step of a run.
type Phase struct {
	Name string
	Dur  time.Duration
	Err  error
}

// Timer collects phases in the order they finish. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{} }

// Track runs fn as the phase name. The phase is also traced as a server span
// on the tracer carried by ctx, and fn receives the span's context.
func (t *Timer) Track(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := trace.Start(ctx, trace.ScopeServer, name)
	started := time.Now()
	err := fn(ctx)
	dur := time.Since(started)
	if err != nil {
		span.Fail(err)
	} else {
		span.End("")
	}

	t.mu.Lock()
	t.phases = append(t.phases, Phase{Name: name, Dur: dur, Err: err})
	t.mu.Unlock()
	return err
}

// Phases returns a copy of the recorded phases.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Phase(nil), t.phases...)
}

// Total sums every phase.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.Phases() {
		total += p.Dur
	}
	return total
}

// Summary formats the phases as an aligned table, one row per phase.
func (t *Timer) Summary() string {
	phases := t.Phases()
	width := len("total")
	for _, p := range phases {
		width = max(width, len(p.Name))
	}
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range phases {
		fmt.Fprintf(&b, "  %-*s %9s", width, p.Name, millis(p.Dur))
		if p.Err != nil {
			fmt.Fprintf(&b, "  failed: %v", p.Err)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-*s %9s\n", width, "total", millis(t.Total()))
	return b.String()
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}
