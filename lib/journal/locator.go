// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Pattern matches journal filenames. The timestamp embedded in the
// name makes lexicographic order equal to creation order.
const Pattern = "Journal.*.log"

// ErrNotFound is returned by Locate when the directory holds no journal.
var ErrNotFound = errors.New("no journal file found")

// Locator finds the current journal file in a directory.
type Locator struct {
	Directory string
}

// Locate returns the path of the newest journal file. It returns an
// error wrapping ErrNotFound when there is none, and any other error
// when the directory cannot be read.
func (l Locator) Locate() (string, error) {
	entries, err := os.ReadDir(l.Directory)
	if err != nil {
		return "", fmt.Errorf("reading journal directory: %w", err)
	}

	newest := ""
	for _, entry := range entries {
		if entry.IsDir() || !Matches(entry.Name()) {
			continue
		}
		if newest == "" || Newer(entry.Name(), newest) {
			newest = entry.Name()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w in %s", ErrNotFound, l.Directory)
	}
	return filepath.Join(l.Directory, newest), nil
}

// Matches reports whether name (a base name) is a journal filename.
func Matches(name string) bool {
	matched, _ := filepath.Match(Pattern, name)
	return matched
}

// Newer reports whether journal a was created after journal b. Either
// may be a full path or a base name.
func Newer(a, b string) bool {
	return filepath.Base(a) > filepath.Base(b)
}
