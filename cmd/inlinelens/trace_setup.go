package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"inlinelens/internal/trace"
)

type traceFlags struct {
	output   string
	level    string
	mode     string
	ringSize int
}

func (f traceFlags) config() (trace.Config, error) {
	level, err := trace.ParseLevel(f.level)
	if err != nil {
		return trace.Config{}, err
	}
	// An output without an explicit level traces phases.
	if level == trace.LevelOff && f.output != "" {
		level = trace.LevelPhase
	}
	mode, err := trace.ParseMode(f.mode)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{Level: level, Mode: mode, OutputPath: f.output, RingSize: f.ringSize}, nil
}

// setupTracing installs the tracer described by f on cmd and the root
// command. The returned cleanup flushes it and, when the run failed, dumps
// the in-memory ring to stderr.
func setupTracing(cmd *cobra.Command, f traceFlags) (func(error), error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	return func(runErr error) {
		if runErr != nil {
			dumpRing(os.Stderr, tracer)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: %v\n", err)
		}
	}, nil
}

func dumpRing(w io.Writer, t trace.Tracer) {
	var ring *trace.RingTracer
	switch t := t.(type) {
	case *trace.RingTracer:
		ring = t
	case *trace.MultiTracer:
		ring, _ = t.Ring()
	}
	if ring == nil {
		return
	}
	fmt.Fprintln(w, "trace: last events before failure:")
	if err := ring.Dump(w, trace.FormatText); err != nil {
		fmt.Fprintf(w, "trace: dump: %v\n", err)
	}
}
