// Package version reports what a cronstore binary was built from and which
// schema it migrates databases to.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/teranos/cronstore/db"
)

// Set with -ldflags "-X github.com/teranos/cronstore/version.Version=..."
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// Info describes a build.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Modified   bool   `json:"modified,omitempty"`
	Schema     int    `json:"schema_version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns build information. Commit and time fall back to the VCS
// stamp the go tool embeds when ldflags did not set them.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Schema:     db.LatestVersion(),
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.fillFromBuildSettings(bi.Settings)
	}
	if info.CommitHash == "" {
		info.CommitHash = "unknown"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return info
}

func (i *Info) fillFromBuildSettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.CommitHash == "" {
				i.CommitHash = s.Value
			}
		case "vcs.time":
			if i.BuildTime == "" {
				i.BuildTime = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

func (i Info) String() string {
	commit := i.Short()
	if i.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("cronstore %s (%s, schema v%d, built %s)", i.Version, commit, i.Schema, i.BuildTime)
}

// Short returns the abbreviated commit.
func (i Info) Short() string {
	if len(i.CommitHash) > 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
