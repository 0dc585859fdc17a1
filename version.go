package synapse

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the module release. It is also sent in the default User-Agent.
var Version = "0.4.0"

// Set with -ldflags "-X github.com/kleinwizard/synapse-ai-complete.commit=..."
// when building outside a VCS checkout.
var (
	commit    = ""
	buildTime = ""
)

// BuildInfo identifies the running build of the client library.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
	Toolchain string
	Modified  bool
}

// Build reports the current build. Commit and build time fall back to the VCS
// stamps recorded by the Go toolchain when they were not set at link time.
func Build() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    commit,
		BuildTime: buildTime,
		Toolchain: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	if info.Commit == "" {
		info.Commit = "dev"
	}
	return info
}

// String formats the build as "synapse 0.4.0 (abc1234, go1.22.0)".
func (b BuildInfo) String() string {
	rev := b.Commit
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if b.Modified {
		rev += "+dirty"
	}
	return fmt.Sprintf("synapse %s (%s, %s)", b.Version, rev, b.Toolchain)
}

// Fields lets a BuildInfo be logged as an event payload.
func (b BuildInfo) Fields() map[string]any {
	out := map[string]any{
		"version":   b.Version,
		"commit":    b.Commit,
		"toolchain": b.Toolchain,
	}
	if b.BuildTime != "" {
		out["buildTime"] = b.BuildTime
	}
	if b.Modified {
		out["modified"] = true
	}
	return out
}
