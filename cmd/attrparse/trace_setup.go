package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"attrparse/internal/config"
	"attrparse/internal/trace"
)

// setupTracing resolves the trace flags against the [trace] section of
// attrparse.toml and attaches the tracer to the command context. The
// returned cleanup stops the heartbeat and closes the tracer.
func setupTracing(cmd *cobra.Command, cfg config.TraceConfig) (func(), error) {
	traceOutput, err := stringSetting(cmd, "trace", cfg.Output)
	if err != nil {
		return nil, err
	}
	levelStr, err := stringSetting(cmd, "trace-level", cfg.Level)
	if err != nil {
		return nil, err
	}
	modeStr, err := stringSetting(cmd, "trace-mode", cfg.Mode)
	if err != nil {
		return nil, err
	}
	ringSize, err := intSetting(cmd, "trace-ring-size", cfg.RingSize)
	if err != nil {
		return nil, err
	}
	heartbeatInterval, err := durationSetting(cmd, "trace-heartbeat", cfg.HeartbeatInterval())
	if err != nil {
		return nil, err
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace without a level means phase
	if level == trace.LevelOff && cmd.Flags().Changed("trace") && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	span, ctx := trace.Start(trace.WithTracer(cmd.Context(), tracer), trace.ScopeSession, cmd.CommandPath())
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	stopHeartbeat := trace.Heartbeat(tracer, heartbeatInterval)

	return func() {
		stopHeartbeat()
		span.End("")
		// ring-only tracing has nowhere to stream, dump what it kept
		if ring := trace.Ring(tracer); ring != nil && mode == trace.ModeRing {
			if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
