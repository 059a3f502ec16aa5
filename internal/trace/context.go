package trace

import "context"

type tracerKey struct{}

type spanKey struct{}

// FromContext returns the tracer stored in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx. A nil t stores Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// parentID returns the ID of the innermost span started from ctx, or 0.
func parentID(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	if s, ok := ctx.Value(spanKey{}).(*Span); ok {
		return s.id
	}
	return 0
}
