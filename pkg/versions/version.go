// Package versions provides version information for the Waldur MCP server.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknownStr = "unknown"

var (
	// Version is the current version of the application, set at build time.
	Version = "dev"
	// Commit is the git commit hash, set at build time.
	Commit = unknownStr
	// BuildDate is the date the binary was built, set at build time.
	BuildDate = unknownStr
)

// VersionInfo represents the version information of the binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version information, falling back to build
// info embedded by the Go toolchain when no version was injected.
func GetVersionInfo() VersionInfo {
	version := Version
	commit := Commit
	buildDate := BuildDate

	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					if commit == unknownStr {
						commit = setting.Value
					}
				case "vcs.time":
					if buildDate == unknownStr {
						buildDate = setting.Value
					}
				}
			}
		}
		if commit != unknownStr && len(commit) >= 8 {
			version = fmt.Sprintf("build-%s", commit[:8])
		} else {
			version = "build-unknown"
		}
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
