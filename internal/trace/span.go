package trace

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// Span is one timed operation. Sinks filter its events by level, so a
// document span still reports its failure at LevelError. A span from a
// disabled tracer records nothing.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time

	mu         sync.Mutex
	uri        string
	version    int
	hasVersion bool
	attrs      map[string]string
	ended      bool
}

// Start begins a span under the innermost span of ctx. The returned context
// carries the new span as parent for nested work.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	if !t.Enabled() {
		return ctx, &Span{}
	}
	s := &Span{
		tracer:  t,
		id:      spanCounter.Add(1),
		parent:  parentID(ctx),
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return context.WithValue(ctx, spanKey{}, s), s
}

func (s *Span) live() bool { return s != nil && s.tracer != nil }

// Doc attributes the span to a document.
func (s *Span) Doc(uri string) *Span {
	if s.live() {
		s.mu.Lock()
		s.uri = uri
		s.mu.Unlock()
	}
	return s
}

// Version records the document version the span worked on.
func (s *Span) Version(v int) *Span {
	if s.live() {
		s.mu.Lock()
		s.version, s.hasVersion = v, true
		s.mu.Unlock()
	}
	return s
}

// Set adds an attribute reported with the end event.
func (s *Span) Set(key, value string) *Span {
	if s.live() {
		s.mu.Lock()
		if s.attrs == nil {
			s.attrs = make(map[string]string, 2)
		}
		s.attrs[key] = value
		s.mu.Unlock()
	}
	return s
}

// End emits the end event once and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return 0
	}
	s.ended = true
	s.mu.Unlock()

	now := time.Now()
	dur := now.Sub(s.started)
	s.Set("dur", dur.Round(time.Microsecond).String())
	s.tracer.Emit(s.event(KindSpanEnd, now, detail))
	return dur
}

// Fail ends the span with err as its detail and also records an error event.
func (s *Span) Fail(err error) time.Duration {
	if !s.live() || err == nil {
		return s.End("")
	}
	ev := s.event(KindError, time.Now(), err.Error())
	ev.SpanID, ev.ParentID = 0, s.id
	s.tracer.Emit(ev)
	return s.End("error")
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := &Event{
		Time:       at,
		Seq:        NextSeq(),
		Kind:       kind,
		Scope:      s.scope,
		SpanID:     s.id,
		ParentID:   s.parent,
		Name:       s.name,
		URI:        s.uri,
		Version:    s.version,
		HasVersion: s.hasVersion,
		Detail:     detail,
	}
	if kind != KindSpanBegin && len(s.attrs) > 0 {
		ev.Attrs = make(map[string]string, len(s.attrs))
		for k, v := range s.attrs {
			ev.Attrs[k] = v
		}
	}
	return ev
}

// Point records an instant event under the innermost span of ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Enabled() || !t.Level().ShouldEmit(scope, KindPoint) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parentID(ctx),
		Name:     name,
		Detail:   detail,
	})
}

// Error records err under the innermost span of ctx. It passes every level
// but off.
func Error(ctx context.Context, scope Scope, name string, err error) {
	t := FromContext(ctx)
	if err == nil || !t.Enabled() {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindError,
		Scope:    scope,
		ParentID: parentID(ctx),
		Name:     name,
		Detail:   err.Error(),
	})
}
