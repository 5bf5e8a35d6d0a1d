// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the binary at compile
// time via -ldflags: name, version, commit, and build timestamp. When the
// binary is built without ldflags (a plain go build during development)
// the fields fall back to development placeholders instead of failing.
package build

import "fmt"

const appDescription = "Streaming spectral estimation for audio files and capture devices"

// Info is the resolved build metadata.
type Info struct {
	Name        string
	Time        string
	Commit      string
	Version     string
	Description string
}

// Populated by -ldflags at compile time, e.g.
//
//	-ldflags "-X spectro/pkg/build.buildVersion=v1.2.0"
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var buildInfo = &Info{
	Name:        "spectro",
	Time:        "unknown",
	Commit:      "unknown",
	Version:     "dev",
	Description: appDescription,
}

// Initialize copies any stamped ldflags values over the development
// defaults. Call once, early in startup.
func Initialize() {
	if buildName != "" {
		buildInfo.Name = buildName
	}
	if buildTime != "" {
		buildInfo.Time = buildTime
	}
	if buildCommit != "" {
		buildInfo.Commit = buildCommit
	}
	if buildVersion != "" {
		buildInfo.Version = buildVersion
	}
}

// GetInfo returns the resolved build metadata. Valid after Initialize;
// before that it holds the development defaults.
func GetInfo() *Info {
	return buildInfo
}

// Summary renders a one-line version string for --version output.
func (i *Info) Summary() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
