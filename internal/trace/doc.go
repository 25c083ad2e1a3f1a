// Package trace records what the grammar compiler and the parser are doing.
//
// Spans cover the phases of one run: seal (grammar checks), compile
// (kernel construction, one rule span per compiled rule), parse (one
// position span per chart position, nested parses included), build
// (forest to syntax tree) and batch. Heartbeats mark a live process.
//
//	attrparse parse --grammar calc --trace=- --trace-level=debug "1+2"
//
// The level names the finest scope written:
//
//   - phase: session and phase spans
//   - detail: plus rule spans
//   - debug: plus position spans
//
// StreamTracer writes text or NDJSON as events happen, RingTracer keeps
// the tail for a dump at exit. New builds either or both from a Config.
//
// Spans nest through the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.Start(ctx, trace.ScopePhase, "compile")
//	defer span.End("")
package trace
