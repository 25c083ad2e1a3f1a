package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Build metadata. The variables can be overridden at build time via
// -ldflags "-X attrparse/internal/version.Version=...".
var (
	// Version is the semantic version of the CLI.
	Version = "0.3.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with each numeric component colored. Colors
// follow color.NoColor, so the result is plain when output is not a
// terminal.
func Colored() string {
	v := strings.TrimSpace(Version)
	core, suffix, _ := strings.Cut(v, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return v
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Line is the one-line description printed by `attrparse version`.
func Line(full bool) string {
	line := "attrparse " + Colored()
	if !full {
		return line
	}
	if c := strings.TrimSpace(GitCommit); c != "" {
		line += fmt.Sprintf(" (%s)", c)
	}
	if d := strings.TrimSpace(BuildDate); d != "" {
		line += " built " + d
	}
	return line
}
