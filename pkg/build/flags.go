// SPDX-License-Identifier: MIT
//
// Package build exposes build metadata (name, version, commit, timestamp)
// injected at compile time via -ldflags. During development, when no flags
// are injected, sensible defaults are used so the binary still runs.
package build

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables populated by -ldflags during compilation, e.g.
//
//	go build -ldflags "-X spectra/pkg/build.buildVersion=0.2.0"
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "spectra",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies any injected ldflags values into the buildFlags struct.
// Must be called early in program startup; fields without an injected value
// keep their development defaults.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information. Safe to call at any
// point after Initialize().
func GetBuildFlags() *ldFlags {
	return buildFlags
}
