package trace

import "errors"

// MultiTracer sends each event to several sinks.
type MultiTracer struct {
	sinks []Tracer
	level Level
}

// NewMultiTracer fans out to sinks. Nil sinks are skipped.
func NewMultiTracer(level Level, sinks ...Tracer) *MultiTracer {
	m := &MultiTracer{level: level}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Emit hands every sink its own copy, so a ring cannot observe later edits
// made by a stream.
func (m *MultiTracer) Emit(ev *Event) {
	if ev == nil {
		return
	}
	for _, s := range m.sinks {
		cp := *ev
		s.Emit(&cp)
	}
}

func (m *MultiTracer) Flush() error {
	return m.each(Tracer.Flush)
}

func (m *MultiTracer) Close() error {
	return m.each(Tracer.Close)
}

func (m *MultiTracer) each(fn func(Tracer) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ring returns the first ring sink, if any.
func (m *MultiTracer) Ring() (*RingTracer, bool) {
	for _, s := range m.sinks {
		if r, ok := s.(*RingTracer); ok {
			return r, true
		}
	}
	return nil, false
}

func (m *MultiTracer) Level() Level  { return m.level }
func (m *MultiTracer) Enabled() bool { return m.level > LevelOff }
