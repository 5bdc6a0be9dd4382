package version

import "runtime/debug"

// You can set the version at build time using something like:
// go build -ldflags "-X github.com/tactus-audio/tactus/version.Version=$(git describe --dirty)"

var Version string

var settings = func() map[string]string {
	ret := map[string]string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			ret[setting.Key] = setting.Value
		}
	}
	return ret
}()

// BuildID is the full VCS revision the binary was built from, suffixed
// with -dirty for modified trees, or "devel" when unknown. Recalls created
// by the fx factory carry it.
var BuildID = func() string {
	rev := settings["vcs.revision"]
	if rev == "" {
		return "devel"
	}
	if settings["vcs.modified"] == "true" {
		return rev + "-dirty"
	}
	return rev
}()

// Hash is the short form of BuildID, empty when unknown.
var Hash = func() string {
	rev := settings["vcs.revision"]
	if len(rev) < 7 {
		return ""
	}
	if settings["vcs.modified"] == "true" {
		return rev[:7] + "-dirty"
	}
	return rev[:7]
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()
