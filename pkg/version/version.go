package version

import "fmt"

// Version information set by the build via -ldflags.
var (
	// commitFromGit is a constant representing the source version that
	// generated this build. It should be set during build via -ldflags.
	commitFromGit string

	// versionFromGit is a constant representing the version tag that
	// generated this build. It should be set during build via -ldflags.
	versionFromGit string
)

// Info contains versioning information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
}

// Get returns the overall codebase version.
func Get() Info {
	return Info{
		Version:   versionFromGit,
		GitCommit: commitFromGit,
	}
}

// String returns info as a human-friendly version string.
func (info Info) String() string {
	version := info.Version
	if version == "" {
		version = "unknown"
	}
	if info.GitCommit != "" {
		version = fmt.Sprintf("%s (%s)", version, info.GitCommit)
	}
	return version
}
