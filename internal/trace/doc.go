// Package trace provides the tracing subsystem of the weave CLI.
//
// Tracing records run, phase and per-file spans so slow plugins or large
// projects can be diagnosed without a debugger.
//
// # Usage
//
//	weave build --trace=- --trace-level=detail
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: reserved for failure-only output
//   - LevelPhase: run and phase boundaries
//   - LevelDetail: per-file checking and emission
//   - LevelDebug: every transformer invocation
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopePhase, "emit")
//	defer span.End("")
package trace
