// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Mode selects between the testing build (extra diagnostics in module
// output) and the release build.
type Mode string

const (
	// Testing enables debugging output such as the list of systems a
	// boxel survey skipped.
	Testing Mode = "testing"
	// Release is the quiet mode for normal play.
	Release Mode = "release"
)

// Config is the master configuration.
type Config struct {
	// Mode is testing or release.
	Mode Mode `yaml:"mode"`

	// Paths configures the journal and module data directories.
	Paths PathsConfig `yaml:"paths"`

	// Commander identifies the player to external services.
	Commander CommanderConfig `yaml:"commander"`

	// EDSM configures the EDSM integration module and client.
	EDSM EDSMConfig `yaml:"edsm"`

	// Clipboard configures the external copy command.
	Clipboard ClipboardConfig `yaml:"clipboard"`

	// Journal configures the tailer.
	Journal JournalConfig `yaml:"journal"`

	// FSSReporter configures the full-system-scan report module.
	FSSReporter FSSReporterConfig `yaml:"fss_reporter"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Journal is the directory the game writes Journal.*.log files to.
	Journal string `yaml:"journal"`

	// Data is where module state, the version ledger and module
	// output files are kept.
	Data string `yaml:"data"`
}

// CommanderConfig identifies the player.
type CommanderConfig struct {
	// Name is the in-game commander name.
	Name string `yaml:"name" env:"COMMANDER_NAME"`
}

// EDSMConfig configures access to the EDSM API.
type EDSMConfig struct {
	// APIKey is the commander's EDSM API key. Required for sending
	// journal events; queries work without it.
	APIKey string `yaml:"api_key" env:"EDSM_API_KEY"`

	// BaseURL is the EDSM endpoint root.
	// Default: https://www.edsm.net
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each request.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// ClipboardConfig configures clipboard writes.
type ClipboardConfig struct {
	// Command is the program and leading arguments; the copied text is
	// appended as the final argument. Empty disables clipboard writes.
	// Default: ["wl-copy", "--"]
	Command []string `yaml:"command"`
}

// JournalConfig configures journal tailing.
type JournalConfig struct {
	// PollInterval makes the tailer re-check the journal periodically
	// in addition to inotify, for filesystems that do not deliver
	// change events (some Wine/Proton setups). Zero disables polling.
	// Default: 5s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// FSSReporterConfig configures the system scan report.
type FSSReporterConfig struct {
	// Delay between FSSAllBodiesFound and the printed report, giving
	// the game time to write the trailing Scan events.
	// Default: 1s
	Delay time.Duration `yaml:"delay"`
}

// DefaultJournalDirectory is where Steam's Proton prefix keeps the game
// journal on Linux.
const DefaultJournalDirectory = "${HOME}/.local/share/Steam/steamapps/compatdata/359320/pfx/drive_c/users/steamuser/Saved Games/Frontier Developments/Elite Dangerous"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode: Release,
		Paths: PathsConfig{
			Journal: DefaultJournalDirectory,
			Data:    "modules_data",
		},
		EDSM: EDSMConfig{
			BaseURL: "https://www.edsm.net",
			Timeout: 30 * time.Second,
		},
		Clipboard: ClipboardConfig{
			Command: []string{"wl-copy", "--"},
		},
		Journal: JournalConfig{
			PollInterval: 5 * time.Second,
		},
		FSSReporter: FSSReporterConfig{
			Delay: time.Second,
		},
	}
}

// Load loads the file named by EDSST_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("EDSST_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("EDSST_CONFIG environment variable not set; " +
			"set it to the path of your edsst.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, merged onto [Default], then
// applies secret overrides from the environment and expands paths.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := cfg.ApplyEnvironment(); err != nil {
		return nil, err
	}
	cfg.ExpandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Plain JSON is valid YAML, so the stripped document goes
		// through the same decoder and struct tags.
		data = jsonc.ToJSON(data)
	}

	return yaml.Unmarshal(data, c)
}

// ApplyEnvironment overrides the secret fields from EDSST_-prefixed
// environment variables. Unset variables leave the fields alone.
func (c *Config) ApplyEnvironment() error {
	options := env.Options{Prefix: "EDSST_"}
	if err := env.ParseWithOptions(&c.Commander, options); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if err := env.ParseWithOptions(&c.EDSM, options); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ExpandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) ExpandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Paths.Journal = expandVars(c.Paths.Journal, vars)
	c.Paths.Data = expandVars(c.Paths.Data, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Mode != Testing && c.Mode != Release {
		errs = append(errs, fmt.Errorf("invalid mode: %q (want %q or %q)", c.Mode, Testing, Release))
	}
	if c.Paths.Journal == "" {
		errs = append(errs, fmt.Errorf("paths.journal is required"))
	}
	if c.Paths.Data == "" {
		errs = append(errs, fmt.Errorf("paths.data is required"))
	}
	if c.EDSM.BaseURL == "" {
		errs = append(errs, fmt.Errorf("edsm.base_url is required"))
	}
	if c.EDSM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("edsm.timeout must be positive"))
	}
	if c.Journal.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("journal.poll_interval must not be negative"))
	}
	if c.FSSReporter.Delay < 0 {
		errs = append(errs, fmt.Errorf("fss_reporter.delay must not be negative"))
	}

	return errors.Join(errs...)
}
