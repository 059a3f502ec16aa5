package prof

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Mem:   filepath.Join(dir, "mem.pprof"),
		Trace: filepath.Join(dir, "run.trace"),
	}
	require.True(t, opts.Enabled())

	s, err := Start(opts)
	require.NoError(t, err)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	for _, p := range []string{opts.CPU, opts.Mem, opts.Trace} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.NotZero(t, info.Size(), p)
	}
}

func TestStartFailsOnBadPath(t *testing.T) {
	_, err := Start(Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.pprof")})
	require.Error(t, err)
}

func TestNilSessionStop(t *testing.T) {
	var s *Session
	require.NoError(t, s.Stop())
	require.False(t, Options{}.Enabled())
}
