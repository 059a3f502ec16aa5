package main

import (
	"fmt"

	"inlinelens/internal/prof"
)

// setupProfiling starts the profilers named in opts. The returned stop
// function is safe to call more than once.
func setupProfiling(opts prof.Options) (func() error, error) {
	if !opts.Enabled() {
		return func() error { return nil }, nil
	}
	session, err := prof.Start(opts)
	if err != nil {
		return nil, fmt.Errorf("start profiling: %w", err)
	}
	return session.Stop, nil
}
