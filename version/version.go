package version

import "runtime/debug"

// Version is set at build time via -ldflags "-X missioncontrol/version.Version=..."
var Version = ""

// Get returns the build version, falling back to the module version recorded
// by `go install` and finally "dev".
func Get() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
