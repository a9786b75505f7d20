// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the edsst
// binary. GitCommit and BuildTime are injected with -ldflags:
//
//	go build -ldflags "-X github.com/stellar-survey/edsst/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the EDSST release. Module versions are tracked
	// separately by each module.
	Version = "v0.0.3"
)

// Info returns the string printed by --version.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

// Full returns Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Software returns the "<edsst>/<module>" string reported to external
// services as the uploading software version.
func Software(moduleVersion string) string {
	return Version + "/" + moduleVersion
}
