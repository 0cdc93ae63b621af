package buildconfig

import (
	"fmt"
	"runtime"
)

// Build-time variables injected via ldflags:
//
//	-X github.com/Harshitk-cp/memora/internal/buildconfig.version=v0.3.0
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// VersionInfo is reported by the server's /stats endpoint and the CLI.
func VersionInfo() map[string]string {
	info := map[string]string{
		"version":    version,
		"commit":     commit,
		"go_version": runtime.Version(),
	}
	if buildDate != "" {
		info["build_date"] = buildDate
	}
	return info
}

// String formats the version for humans, e.g. "memora dev (unknown, go1.24.0)".
func String() string {
	return fmt.Sprintf("memora %s (%s, %s)", version, commit, runtime.Version())
}
