// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the binary entrypoint error handler used before
// the structured logger exists.
package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
