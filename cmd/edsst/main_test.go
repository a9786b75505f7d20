// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "edsst.yaml")
	content := "paths:\n  journal: /games/journal\n  data: /var/lib/edsst\nfss_reporter:\n  delay: 3s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EDSST_CONFIG", "")

	cfg, err := loadConfig(flags{configPath: path, data: "/tmp/edsst-data"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Paths.Journal != "/games/journal" {
		t.Errorf("journal = %q", cfg.Paths.Journal)
	}
	if cfg.Paths.Data != "/tmp/edsst-data" {
		t.Errorf("data = %q, want the flag value", cfg.Paths.Data)
	}
	if cfg.FSSReporter.Delay != 3*time.Second {
		t.Errorf("delay = %v", cfg.FSSReporter.Delay)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EDSST_CONFIG", "")
	t.Setenv("HOME", "/home/cmdr")
	t.Setenv("EDSST_EDSM_API_KEY", "from-env")

	cfg, err := loadConfig(flags{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.EDSM.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.EDSM.APIKey)
	}
	if want := "/home/cmdr/.local/share/Steam"; !strings.HasPrefix(cfg.Paths.Journal, want) {
		t.Errorf("journal = %q, want it under %s", cfg.Paths.Journal, want)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "edsst.yaml")
	if err := os.WriteFile(path, []byte("mode: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(flags{configPath: path}); err == nil {
		t.Error("loadConfig accepted an invalid mode")
	}
}
