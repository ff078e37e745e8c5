// Package version holds the build identity, set through -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	AppName   = "warden"
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// String returns a one-line build description.
func String() string {
	commit := Commit
	if commit == "" {
		commit = vcsRevision()
	}
	s := fmt.Sprintf("%s %s", AppName, Version)
	if commit != "" {
		s += " (" + commit + ")"
	}
	if BuildDate != "" {
		s += " built " + BuildDate
	}
	return s
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
