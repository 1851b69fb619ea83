package trace

import "context"

type tracerKey struct{}

// FromContext returns the Tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx. A nil t disables tracing below ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// SpanContext is what a context carries about the work in progress: the
// innermost span and the compilation it belongs to. Start tags every span
// with the App and RunID it finds here.
type SpanContext struct {
	SpanID uint64
	App    string
	RunID  string
}

type spanKey struct{}

// CurrentSpan returns the SpanContext carried by ctx, or the zero value.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	if sc, ok := ctx.Value(spanKey{}).(SpanContext); ok {
		return sc
	}
	return SpanContext{}
}

// WithSpanContext attaches sc to ctx.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, spanKey{}, sc)
}

// WithRun records the app and run id of a compilation. Empty arguments keep
// the values ctx already carries.
func WithRun(ctx context.Context, app, runID string) context.Context {
	sc := CurrentSpan(ctx)
	if app != "" {
		sc.App = app
	}
	if runID != "" {
		sc.RunID = runID
	}
	return WithSpanContext(ctx, sc)
}
