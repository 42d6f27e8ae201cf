// Package version reports the rfxcom build version.
//
// Release builds set the values through ldflags:
//
//	go build -ldflags="-X github.com/muurk/rfxcom/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/rfxcom/internal/version.Commit=abc1234" ./cmd/rfxcom
//
// Other builds fall back to the VCS stamp Go embeds in the binary, then to
// a "dev" version.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Version is the release version, reported by /healthz and the mDNS TXT record
	Version = ""
	// Commit is the short git revision
	Commit = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromBuildSettings(info.Settings)
		}
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildSettings fills whatever ldflags left empty from the vcs.* settings
func fromBuildSettings(settings []debug.BuildSetting) {
	vcs := make(map[string]string, len(settings))
	for _, s := range settings {
		vcs[s.Key] = s.Value
	}

	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	// Tags are not part of the build info, so date the dev build instead
	if Version == "" && vcs["vcs.time"] != "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
