package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	var runs atomic.Int32
	d := New(func() { runs.Add(1) })
	for n := 0; n < 10; n++ {
		d.Schedule(30 * time.Millisecond)
	}
	if !d.Pending() {
		t.Fatal("expected a pending run")
	}
	waitFor(t, func() bool { return runs.Load() == 1 })
	time.Sleep(60 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("expected exactly one run, got %d", got)
	}
	if d.Pending() {
		t.Fatal("expected nothing pending after the run")
	}
}

func TestDebouncerRescheduleExtendsWindow(t *testing.T) {
	var ran atomic.Int64
	start := time.Now()
	d := New(func() { ran.Store(int64(time.Since(start))) })
	d.Schedule(40 * time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	d.Schedule(40 * time.Millisecond)
	waitFor(t, func() bool { return ran.Load() != 0 })
	if elapsed := time.Duration(ran.Load()); elapsed < 60*time.Millisecond {
		t.Fatalf("run fired %v after start, before the rescheduled window", elapsed)
	}
}

func TestDebouncerNowCancelsPending(t *testing.T) {
	var runs atomic.Int32
	d := New(func() { runs.Add(1) })
	d.Schedule(20 * time.Millisecond)
	d.Now()
	if runs.Load() != 1 {
		t.Fatalf("expected immediate run, got %d", runs.Load())
	}
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != 1 {
		t.Fatalf("pending run survived Now: %d runs", runs.Load())
	}
}

func TestDebouncerStop(t *testing.T) {
	var runs atomic.Int32
	d := New(func() { runs.Add(1) })
	d.Schedule(10 * time.Millisecond)
	d.Stop()
	d.Schedule(10 * time.Millisecond)
	d.Now()
	time.Sleep(40 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatalf("expected no runs after Stop, got %d", runs.Load())
	}
}
