// Package buildinfo reports the binary's version for the window title, the
// HUD and the startup log line.
package buildinfo

import (
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X worldview/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var vcsOnce sync.Once

// Short returns the release version, else an abbreviated commit, else "dev".
// Without ldflags the commit comes from the toolchain's VCS stamp.
func Short() string {
	vcsOnce.Do(fillFromVCS)
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		if len(Commit) > 12 {
			return Commit[:12]
		}
		return Commit
	}
	return "dev"
}

func fillFromVCS() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	dirty := false
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && Commit != "unknown" {
		Commit += "-dirty"
	}
}
