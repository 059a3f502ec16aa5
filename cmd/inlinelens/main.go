package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"inlinelens/internal/prof"
	"inlinelens/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "inlinelens",
	Short: "Inline codelens proxy for language servers",
	Long: `inlinelens sits between an editor and a language server and shows
codelens annotations at the end of the lines they belong to, either as
decorations or as inlay hints`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		stopProfiling, err := setupProfiling(globals.profile)
		if err != nil {
			return err
		}
		cleanup, err := setupTracing(cmd, globals.trace)
		if err != nil {
			_ = stopProfiling()
			return err
		}
		traceCleanup = func(runErr error) {
			cleanup(runErr)
			if err := stopProfiling(); err != nil {
				fmt.Fprintf(os.Stderr, "profiling: %v\n", err)
			}
		}
		return nil
	},
}

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	config  string
	trace   traceFlags
	profile prof.Options
}

var globals globalFlags

// traceCleanup flushes the tracer and profilers installed by the last
// command, if any.
var traceCleanup = func(error) {}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globals.config, "config", "", "settings file (default: nearest inlinelens.toml)")
	pf.StringVar(&globals.trace.output, "trace", "", "trace output file (- for stderr)")
	pf.StringVar(&globals.trace.level, "trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.StringVar(&globals.trace.mode, "trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.IntVar(&globals.trace.ringSize, "trace-ring-size", 4096, "events kept in ring mode")
	pf.StringVar(&globals.profile.CPU, "cpu-profile", "", "write a CPU profile to this file")
	pf.StringVar(&globals.profile.Mem, "mem-profile", "", "write a heap profile to this file on exit")
	pf.StringVar(&globals.profile.Trace, "runtime-trace", "", "write a Go runtime trace to this file")
}

// main executes the root command. A failing command exits with status 1.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	traceCleanup(err)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
