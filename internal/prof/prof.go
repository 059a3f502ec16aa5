// Package prof starts and stops the Go runtime profilers for one process run.
package prof

import (
	"errors"
	"os"
	"runtime"
	"runtime/pprof"
	rttrace "runtime/trace"
	"sync"
)

// Options names the output file of each profiler. Empty paths are skipped.
type Options struct {
	CPU   string
	Mem   string
	Trace string
}

// Enabled reports whether any profiler is requested.
func (o Options) Enabled() bool {
	return o.CPU != "" || o.Mem != "" || o.Trace != ""
}

// Session owns the profilers started by Start.
type Session struct {
	cpu     *os.File
	trace   *os.File
	memPath string
	once    sync.Once
	err     error
}

// Start enables the requested profilers. On error nothing is left running.
func Start(opts Options) (*Session, error) {
	s := &Session{memPath: opts.Mem}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		s.cpu = f
	}
	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			s.stopCPU()
			return nil, err
		}
		if err := rttrace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, err
		}
		s.trace = f
	}
	return s, nil
}

func (s *Session) stopCPU() error {
	if s.cpu == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := s.cpu.Close()
	s.cpu = nil
	return err
}

func (s *Session) stopTrace() error {
	if s.trace == nil {
		return nil
	}
	rttrace.Stop()
	err := s.trace.Close()
	s.trace = nil
	return err
}

func (s *Session) writeMem() error {
	if s.memPath == "" {
		return nil
	}
	f, err := os.Create(s.memPath)
	if err != nil {
		return err
	}
	runtime.GC()
	err = pprof.WriteHeapProfile(f)
	return errors.Join(err, f.Close())
}

// Stop ends every profiler and writes the heap profile. Later calls return
// the first result.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.err = errors.Join(s.stopTrace(), s.stopCPU(), s.writeMem())
	})
	return s.err
}
