// Package version reports the build stamped into the pixgeo commands
package version

// BuildInfo identifies a command build
type BuildInfo struct {
	Command string `json:"command"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set with -ldflags "-X pixgeo/internal/core/version.version=v0.1.0
// -X pixgeo/internal/core/version.commit=abcd -X pixgeo/internal/core/version.date=2026-10-01"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build information for command
func Info(command string) BuildInfo {
	return BuildInfo{
		Command: command,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}
