package version

import (
	"runtime/debug"
	"strings"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Release reports whether the build carries a real version.
func (i Info) Release() bool {
	return i.Version != "dev" && !i.Dirty
}

// Get returns the build info, preferring ldflags values over vcs stamps.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// Short returns "version[-commit][-dirty]".
func Short() string {
	info := Get()
	parts := []string{info.Version}
	if info.Commit != "" {
		parts = append(parts, info.Commit)
	}
	if info.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

var readBuildInfo = debug.ReadBuildInfo
