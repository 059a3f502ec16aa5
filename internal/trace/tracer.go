package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory, dumped on failure
	ModeBoth
)

var modeNames = map[StorageMode]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode accepts stream, ring or both.
func ParseMode(s string) (StorageMode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return ModeStream, fmt.Errorf("invalid storage mode %q (expected stream|ring|both)", s)
}

const defaultRingSize = 4096

// Config describes the tracer New builds.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format
	Output     io.Writer // stream destination; OutputPath is used when nil
	OutputPath string    // "-" or empty means stderr
	RingSize   int
}

func (c Config) format() Format {
	if c.Format != FormatAuto {
		return c.Format
	}
	switch filepath.Ext(c.OutputPath) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

// New builds the tracer described by cfg. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if _, ok := modeNames[cfg.Mode]; !ok {
		return nil, fmt.Errorf("unknown storage mode: %v", cfg.Mode)
	}

	var sinks []Tracer
	if cfg.Mode != ModeRing {
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewStreamTracer(w, cfg.Level, cfg.format()))
	}
	if cfg.Mode != ModeStream {
		sinks = append(sinks, NewRingTracer(cfg.RingSize, cfg.Level))
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiTracer(cfg.Level, sinks...), nil
}

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		// Wrapped so Close leaves stderr open.
		return struct{ io.Writer }{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}
