// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package clipboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandCopy(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "clipboard")
	copier := New([]string{"sh", "-c", `printf %s "$1" > "$0"`, output})

	if err := copier.Copy(context.Background(), "Col 285 Sector AB-C d1-42"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "Col 285 Sector AB-C d1-42" {
		t.Errorf("clipboard = %q", got)
	}
}

func TestCommandCopyFailure(t *testing.T) {
	t.Parallel()

	copier := New([]string{"sh", "-c", `echo "no display" >&2; exit 3`})
	err := copier.Copy(context.Background(), "Sol")
	if err == nil {
		t.Fatal("Copy succeeded")
	}
	if !strings.Contains(err.Error(), "no display") {
		t.Errorf("error %q does not carry stderr", err)
	}
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	if err := New(nil).Copy(context.Background(), "Sol"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Copy = %v, want ErrDisabled", err)
	}
}
