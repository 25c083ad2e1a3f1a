package trace

import "context"

// frame is what a context carries: the tracer and the innermost span.
type frame struct {
	tracer Tracer
	span   uint64
}

type frameKey struct{}

func frameOf(ctx context.Context) frame {
	var f frame
	if ctx != nil {
		f, _ = ctx.Value(frameKey{}).(frame)
	}
	if f.tracer == nil {
		f.tracer = Nop
	}
	return f
}

// WithTracer attaches t to ctx. A nil t detaches tracing.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	f := frameOf(ctx)
	f.tracer = t
	if t == nil {
		f.tracer = Nop
	}
	return context.WithValue(ctx, frameKey{}, f)
}

// FromContext returns the tracer of ctx, Nop when there is none.
func FromContext(ctx context.Context) Tracer { return frameOf(ctx).tracer }

// CurrentSpan returns the id of the innermost span started with Start.
func CurrentSpan(ctx context.Context) uint64 { return frameOf(ctx).span }

// Start begins a span under the current span of ctx. The returned context
// carries the new span unless it is disabled.
func Start(ctx context.Context, scope Scope, name string) (*Span, context.Context) {
	f := frameOf(ctx)
	s := Begin(f.tracer, scope, name, f.span)
	if s == nil {
		return nil, ctx
	}
	f.span = s.id
	return s, context.WithValue(ctx, frameKey{}, f)
}
