// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/stellar-survey/edsst/lib/clipboard"
	"github.com/stellar-survey/edsst/lib/clock"
	"github.com/stellar-survey/edsst/lib/config"
	"github.com/stellar-survey/edsst/lib/console"
	"github.com/stellar-survey/edsst/lib/dispatch"
	edsmapi "github.com/stellar-survey/edsst/lib/edsm"
	"github.com/stellar-survey/edsst/lib/journal"
	"github.com/stellar-survey/edsst/lib/process"
	"github.com/stellar-survey/edsst/lib/statestore"
	"github.com/stellar-survey/edsst/lib/subscriber"
	"github.com/stellar-survey/edsst/lib/version"
	"github.com/stellar-survey/edsst/modules/boxelsurvey"
	"github.com/stellar-survey/edsst/modules/chatrelay"
	"github.com/stellar-survey/edsst/modules/core"
	"github.com/stellar-survey/edsst/modules/edsm"
	"github.com/stellar-survey/edsst/modules/fssreporter"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type flags struct {
	configPath string
	journal    string
	data       string
	logLevel   string
}

func run() error {
	var options flags
	flagSet := pflag.NewFlagSet("edsst", pflag.ContinueOnError)
	flagSet.StringVar(&options.configPath, "config", "", "path to the edsst.yaml or .jsonc config file (default: $EDSST_CONFIG)")
	flagSet.StringVar(&options.journal, "journal", "", "journal directory, overriding paths.journal")
	flagSet.StringVar(&options.data, "data", "", "module data directory, overriding paths.data")
	flagSet.StringVar(&options.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion, _ := flagSet.GetBool("version"); showVersion {
		fmt.Println("edsst " + version.Full())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(options)
	if err != nil {
		return err
	}
	level, err := console.ParseLevel(options.logLevel)
	if err != nil {
		return err
	}

	terminal, err := console.Open()
	if err != nil {
		return err
	}
	defer terminal.Close()
	logger := console.NewLogger(terminal, terminal.Interactive(), level)

	store, err := statestore.Open(cfg.Paths.Data)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := dispatch.NewHub(ctx, logger)
	if err := registerModules(hub, cfg, store, terminal, logger); err != nil {
		return err
	}

	watcher, err := journal.WatchDirectory(cfg.Paths.Journal)
	if err != nil {
		return err
	}
	defer watcher.Close()

	tailer := journal.NewTailer(journal.TailerConfig{
		Locator:      journal.Locator{Directory: cfg.Paths.Journal},
		Notifier:     watcher,
		PollInterval: cfg.Journal.PollInterval,
		Logger:       logger,
	})

	logger.Info("edsst starting",
		"version", version.Info(),
		"journal", cfg.Paths.Journal,
		"data", cfg.Paths.Data,
		"mode", cfg.Mode,
	)
	return hub.Run(ctx, tailer, terminal)
}

// loadConfig reads the config named by --config or EDSST_CONFIG, or the
// built-in defaults when neither is set, then applies flag overrides.
func loadConfig(options flags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case options.configPath != "":
		cfg, err = config.LoadFile(options.configPath)
	case os.Getenv("EDSST_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
		if err = cfg.ApplyEnvironment(); err == nil {
			cfg.ExpandVariables()
		}
	}
	if err != nil {
		return nil, err
	}

	if options.journal != "" {
		cfg.Paths.Journal = options.journal
	}
	if options.data != "" {
		cfg.Paths.Data = options.data
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// registerModules constructs the subscribers in dispatch order.
func registerModules(hub *dispatch.Hub, cfg *config.Config, store *statestore.Store, terminal *console.Console, logger *slog.Logger) error {
	shared := subscriber.Options{
		Store:    store,
		Output:   terminal,
		Renderer: terminal.Renderer(),
		Logger:   logger,
	}
	realClock := clock.Real()

	coreModule, err := core.New(shared)
	if err != nil {
		return err
	}

	client := edsmapi.New(edsmapi.Options{
		BaseURL:         cfg.EDSM.BaseURL,
		Timeout:         cfg.EDSM.Timeout,
		CommanderName:   cfg.Commander.Name,
		APIKey:          cfg.EDSM.APIKey,
		SoftwareVersion: version.Software(edsm.Version),
	})
	edsmModule, err := edsm.New(shared, edsm.Options{Uploader: client, Clock: realClock})
	if err != nil {
		return err
	}

	fssModule, err := fssreporter.New(shared, fssreporter.Options{
		Core:  coreModule,
		Clock: realClock,
		Delay: cfg.FSSReporter.Delay,
	})
	if err != nil {
		return err
	}

	boxelModule, err := boxelsurvey.New(shared, boxelsurvey.Options{
		Lookup:    client,
		Copier:    clipboard.New(cfg.Clipboard.Command),
		ListKnown: cfg.Mode == config.Testing,
	})
	if err != nil {
		return err
	}

	relayModule, err := chatrelay.New(shared, hub)
	if err != nil {
		return err
	}

	return hub.Register(coreModule, edsmModule, fssModule, boxelModule, relayModule)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `edsst: Elite Dangerous star system tool.

Tails the game journal and feeds every event to the enabled modules.
Modules are controlled from the console by alias, for example
"fss report" or "boxel survey 10 of 40 in Synuefe AA-A h". Type
"exit" or press Ctrl-D to quit.

Usage:
  edsst [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
