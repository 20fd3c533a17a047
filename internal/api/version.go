package api

// Version information set at build time via ldflags.
var (
	ArenaVersion = "dev"
	GitCommit    = "unknown"
	BuildTime    = "unknown"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	ArenaVersion string `json:"arena_version"`
	GitCommit    string `json:"git_commit,omitempty"`
	BuildTime    string `json:"build_time,omitempty"`
}

// GetVersionInfo returns the current version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		ArenaVersion: ArenaVersion,
		GitCommit:    GitCommit,
		BuildTime:    BuildTime,
	}
}
