// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Mode != Release {
		t.Errorf("expected mode=release, got %s", cfg.Mode)
	}
	if cfg.EDSM.BaseURL != "https://www.edsm.net" {
		t.Errorf("expected edsm.base_url=https://www.edsm.net, got %s", cfg.EDSM.BaseURL)
	}
	if cfg.FSSReporter.Delay != time.Second {
		t.Errorf("expected fss_reporter.delay=1s, got %v", cfg.FSSReporter.Delay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoad_RequiresEDSSTConfig(t *testing.T) {
	t.Setenv("EDSST_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when EDSST_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "EDSST_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoadFile_YAML(t *testing.T) {
	t.Setenv("EDSST_EDSM_API_KEY", "")
	t.Setenv("EDSST_COMMANDER_NAME", "")
	t.Setenv("HOME", "/home/cmdr")

	configPath := filepath.Join(t.TempDir(), "edsst.yaml")
	content := `
mode: testing
paths:
  journal: ${HOME}/journals
  data: ${EDSST_TEST_DATA:-/var/lib/edsst}
commander:
  name: Jameson
edsm:
  api_key: from-file
  timeout: 10s
clipboard:
  command: ["xclip", "-selection", "clipboard"]
journal:
  poll_interval: 0s
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Mode != Testing {
		t.Errorf("Mode = %s, want testing", cfg.Mode)
	}
	if cfg.Paths.Journal != "/home/cmdr/journals" {
		t.Errorf("Paths.Journal = %q, want /home/cmdr/journals", cfg.Paths.Journal)
	}
	if cfg.Paths.Data != "/var/lib/edsst" {
		t.Errorf("Paths.Data = %q, want default expansion /var/lib/edsst", cfg.Paths.Data)
	}
	if cfg.Commander.Name != "Jameson" {
		t.Errorf("Commander.Name = %q, want Jameson", cfg.Commander.Name)
	}
	if cfg.EDSM.APIKey != "from-file" {
		t.Errorf("EDSM.APIKey = %q, want from-file", cfg.EDSM.APIKey)
	}
	if cfg.EDSM.Timeout != 10*time.Second {
		t.Errorf("EDSM.Timeout = %v, want 10s", cfg.EDSM.Timeout)
	}
	if cfg.EDSM.BaseURL != "https://www.edsm.net" {
		t.Errorf("EDSM.BaseURL = %q, want default kept", cfg.EDSM.BaseURL)
	}
	if strings.Join(cfg.Clipboard.Command, " ") != "xclip -selection clipboard" {
		t.Errorf("Clipboard.Command = %v", cfg.Clipboard.Command)
	}
	if cfg.Journal.PollInterval != 0 {
		t.Errorf("Journal.PollInterval = %v, want 0", cfg.Journal.PollInterval)
	}
}

func TestLoadFile_JSONCWithComments(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "edsst.jsonc")
	content := `{
  // journal lives on the game drive
  "paths": {"journal": "/games/journal", "data": "/tmp/edsst",},
  "fss_reporter": {"delay": "3s"},
}`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.Journal != "/games/journal" {
		t.Errorf("Paths.Journal = %q, want /games/journal", cfg.Paths.Journal)
	}
	if cfg.FSSReporter.Delay != 3*time.Second {
		t.Errorf("FSSReporter.Delay = %v, want 3s", cfg.FSSReporter.Delay)
	}
}

func TestLoadFile_EnvironmentOverridesSecrets(t *testing.T) {
	t.Setenv("EDSST_EDSM_API_KEY", "from-env")
	t.Setenv("EDSST_COMMANDER_NAME", "Envy")

	configPath := filepath.Join(t.TempDir(), "edsst.yaml")
	content := "commander:\n  name: Jameson\nedsm:\n  api_key: from-file\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.EDSM.APIKey != "from-env" {
		t.Errorf("EDSM.APIKey = %q, want from-env", cfg.EDSM.APIKey)
	}
	if cfg.Commander.Name != "Envy" {
		t.Errorf("Commander.Name = %q, want Envy", cfg.Commander.Name)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Mode = "debug"
	cfg.Paths.Journal = ""
	cfg.EDSM.Timeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, fragment := range []string{"invalid mode", "paths.journal", "edsm.timeout"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q does not mention %q", err.Error(), fragment)
		}
	}
}
