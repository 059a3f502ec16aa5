package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string, noColor bool) {
	t.Helper()
	origVersion, origNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = origVersion, origNoColor })
	Version, color.NoColor = v, noColor
}

func TestPrettyPlain(t *testing.T) {
	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "dev", "1.2"} {
		withVersion(t, v, true)
		require.Equal(t, v, Pretty())
	}
}

func TestPrettyColorsTriple(t *testing.T) {
	withVersion(t, "1.2.3-rc.1", false)
	got := Pretty()
	require.NotEqual(t, "1.2.3-rc.1", got)
	require.True(t, strings.HasSuffix(got, "-rc.1"))

	withVersion(t, "nightly", false)
	require.Equal(t, "nightly", Pretty())
}
