// Package trace records what the renderer does and when.
//
// Refresh cycles, per-document pipeline runs and host round-trips are
// reported as spans; one-off facts (a dropped stale fetch, a rejected
// wrapper call) as point events.
//
// # Usage
//
//	inlinelens serve --trace=- --trace-level=detail
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: only errors
//   - LevelPhase: server lifecycle and refresh cycles
//   - LevelDetail: per-document work
//   - LevelDebug: everything, including per-item events
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//
//	ctx, span := trace.Start(ctx, trace.ScopeDocument, "pipeline")
//	span.Doc(uri).Version(version)
//	defer span.End("")
//
// Spans started from ctx nest under the span it carries.
package trace
