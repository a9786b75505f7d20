// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"strings"
)

// AppendLines appends each line plus a newline to path, creating the
// file if needed.
func AppendLines(t TB, path string, lines ...string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	var builder strings.Builder
	for _, line := range lines {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	if _, err := file.WriteString(builder.String()); err != nil {
		file.Close()
		t.Fatalf("appending to %s: %v", path, err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("closing %s: %v", path, err)
	}
}

// Event returns a minimal journal line for eventType with extra
// key/value pairs rendered as JSON strings or numbers.
//
//	testutil.Event("FSDJump", "StarSystem", "Sol")
func Event(eventType string, keyValues ...any) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, `{"timestamp":"2026-10-19T12:00:00Z","event":%q`, eventType)
	for i := 0; i+1 < len(keyValues); i += 2 {
		key := fmt.Sprint(keyValues[i])
		switch value := keyValues[i+1].(type) {
		case string:
			fmt.Fprintf(&builder, ",%q:%q", key, value)
		default:
			fmt.Fprintf(&builder, ",%q:%v", key, value)
		}
	}
	builder.WriteByte('}')
	return builder.String()
}
