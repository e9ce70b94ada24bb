package main

import (
	"runtime/debug"

	"github.com/kosavsech/SchoolDiary-sub000/cmd"
)

// Version is injected with -ldflags "-X main.Version=...".
var Version = "dev"

// buildVersion falls back to module or VCS info for untagged builds.
func buildVersion(v string) string {
	if v != "" && v != "dev" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	rev, dirty := "", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return v
	}
	v = "devel+" + rev[:min(12, len(rev))]
	if dirty {
		v += "+dirty"
	}
	return v
}

func main() {
	cmd.SetVersion(buildVersion(Version))
	cmd.Execute()
}
