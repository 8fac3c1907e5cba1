// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package version contains version information that is set at build time.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is the canonical version of pegc. Binaries installed with
// "go install" of a tagged module version report that tag instead.
var Version = "0.3.0-dev"

// GoVersion is the version of Go this was built with
var GoVersion = runtime.Version()

// Platform is the runtime OS and architecture of this binary
var Platform = runtime.GOOS + "/" + runtime.GOARCH

// Additional version information that is displayed by the "version" command.
// Both are taken from the build info unless set with -ldflags.
var (
	Vcs       = ""
	Timestamp = ""
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	Version, Vcs, Timestamp = fromBuildInfo(bi, Version, Vcs, Timestamp)
}

func fromBuildInfo(bi *debug.BuildInfo, version, vcs, timestamp string) (string, string, string) {
	if strings.HasSuffix(version, "-dev") && strings.HasPrefix(bi.Main.Version, "v") {
		version = strings.TrimPrefix(bi.Main.Version, "v")
	}

	var revision, modified string
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			if timestamp == "" {
				timestamp = s.Value
			}
		}
	}
	if vcs == "" && revision != "" {
		vcs = revision
		if modified == "true" {
			vcs += "-dirty"
		}
	}
	return version, vcs, timestamp
}
