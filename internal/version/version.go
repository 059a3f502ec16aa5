package version

import (
	"strings"

	"github.com/fatih/color"
)

// Build metadata, set with -ldflags "-X inlinelens/internal/version.Version=...".
var (
	Version    = "0.1.0-dev"
	GitCommit  = ""
	GitMessage = ""
	BuildDate  = "" // ISO-8601
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Pretty returns Version with its major, minor and patch parts colored.
// Anything that is not a dotted triple is returned unchanged.
func Pretty() string {
	core, suffix := Version, ""
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core, suffix = core[:i], core[i:]
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version
	}
	return versionMajorColor.Sprint(parts[0]) + "." +
		versionMinorColor.Sprint(parts[1]) + "." +
		versionPatchColor.Sprint(parts[2]) + suffix
}
