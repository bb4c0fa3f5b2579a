// Package version reports the build version of the iboot binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/iboot/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/iboot/internal/version.Commit=abc123"
//
// If not set, they are taken from the module and VCS build info, or fall
// back to "dev" with a timestamp.
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			v, c := fromBuildInfo(info)
			if Version == "" {
				Version = v
			}
			if Commit == "" {
				Commit = c
			}
		}
	}

	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo derives version and commit from Go build info.
// "go install module@vX" builds carry the module version; local builds
// only have VCS settings, which yield a dev version from the commit time.
func fromBuildInfo(info *debug.BuildInfo) (version, commit string) {
	var vcsRevision, vcsModified, vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcsRevision = setting.Value
		case "vcs.modified":
			vcsModified = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}

	if vcsRevision != "" {
		commit = vcsRevision
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if vcsModified == "true" {
			commit += "-dirty"
		}
	}

	if v := info.Main.Version; v != "" && v != "(devel)" {
		version = v
	} else if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
		version = fmt.Sprintf("dev-%s", t.Format("20060102"))
	}

	return version, commit
}

// Full returns the version line printed by the version commands
func Full(program string) string {
	return fmt.Sprintf("%s %s (commit: %s)", program, Version, Commit)
}
