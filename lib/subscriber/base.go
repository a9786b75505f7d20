// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package subscriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/stellar-survey/edsst/lib/codec"
	"github.com/stellar-survey/edsst/lib/journal"
	"github.com/stellar-survey/edsst/lib/statestore"
)

// Options configures a Base.
type Options struct {
	// Name is the module name. Required.
	Name string

	// Version is the module's state version. A change discards the
	// persisted state of the previous version.
	Version string

	// Aliases are extra command aliases; the lowercased name is always
	// an alias.
	Aliases []string

	// DefaultEnabled is the enabled flag used when no state is saved.
	DefaultEnabled bool

	// State is a pointer to the module's persisted state. Its value at
	// construction is the default restored on first boot and version
	// change. May be nil, or a nil pointer, for modules without state.
	State any

	// Store persists state. Nil disables persistence.
	Store *statestore.Store

	// Output receives printed lines. Defaults to io.Discard.
	Output io.Writer

	// Renderer styles the output prefix. Optional.
	Renderer *lipgloss.Renderer

	// Logger is scoped with the module name. Defaults to discarding.
	Logger *slog.Logger
}

// Base implements the bookkeeping half of Subscriber. Modules embed it
// and override HandleEvent and HandleCommand, calling the Base methods
// first.
type Base struct {
	name           string
	version        string
	aliases        []string
	defaultEnabled bool

	enabled  atomic.Bool
	caughtUp atomic.Bool

	state    any
	defaults []byte
	store    *statestore.Store

	printer *Printer
	logger  *slog.Logger

	firstBoot       bool
	previousVersion string
}

// NewBase registers the module version in the store's ledger, archives
// state written by a different version, and loads the current state.
func NewBase(options Options) (*Base, error) {
	if options.Name == "" {
		return nil, errors.New("subscriber name is required")
	}
	if options.State != nil {
		value := reflect.ValueOf(options.State)
		if value.Kind() != reflect.Pointer {
			return nil, fmt.Errorf("state for %s must be a pointer, got %T", options.Name, options.State)
		}
		if value.IsNil() {
			options.State = nil
		}
	}
	if options.Output == nil {
		options.Output = io.Discard
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	base := &Base{
		name:           options.Name,
		version:        options.Version,
		aliases:        aliasSet(options.Name, options.Aliases),
		defaultEnabled: options.DefaultEnabled,
		state:          options.State,
		store:          options.Store,
		printer:        NewPrinter(options.Output, options.Renderer, options.Name),
		logger:         options.Logger.With("subscriber", options.Name),
	}
	base.enabled.Store(options.DefaultEnabled)

	if base.state != nil {
		defaults, err := codec.Marshal(base.state)
		if err != nil {
			return nil, fmt.Errorf("encoding default state for %s: %w", options.Name, err)
		}
		base.defaults = defaults
	}

	if base.store != nil {
		registration, err := base.store.Ledger().Register(base.name, base.version)
		if err != nil {
			return nil, fmt.Errorf("registering %s: %w", base.name, err)
		}
		base.firstBoot = registration.FirstBoot
		if registration.VersionChanged {
			base.previousVersion = registration.PreviousVersion
			if err := base.archive(registration.PreviousVersion); err != nil {
				return nil, err
			}
		}
	}

	if err := base.LoadState(); err != nil {
		return nil, err
	}
	base.logger.Info("module loaded", "version", base.version, "enabled", base.Enabled())
	return base, nil
}

func aliasSet(name string, extra []string) []string {
	aliases := []string{strings.ToLower(name)}
	for _, alias := range extra {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias != "" && !slices.Contains(aliases, alias) {
			aliases = append(aliases, alias)
		}
	}
	return aliases
}

func (b *Base) Name() string      { return b.name }
func (b *Base) Version() string   { return b.version }
func (b *Base) Aliases() []string { return slices.Clone(b.aliases) }
func (b *Base) Enabled() bool     { return b.enabled.Load() }
func (b *Base) CaughtUp() bool    { return b.caughtUp.Load() }

// FirstBoot reports whether this run is the first the ledger has seen
// of the module.
func (b *Base) FirstBoot() bool { return b.firstBoot }

// Logger returns the module-scoped logger.
func (b *Base) Logger() *slog.Logger { return b.logger }

// Enable sets the enabled flag and persists it when caught up.
func (b *Base) Enable() {
	b.enabled.Store(true)
	b.saveQuietly()
}

// Disable clears the enabled flag and persists it when caught up.
func (b *Base) Disable() {
	b.enabled.Store(false)
	b.saveQuietly()
}

func (b *Base) saveQuietly() {
	if err := b.SaveState(); err != nil {
		b.logger.Error("saving state", "error", err)
	}
}

// LoadState replaces the in-memory state with the persisted one. Missing
// state, or state written by another version, resets to the defaults.
func (b *Base) LoadState() error {
	if b.store == nil {
		return b.reset()
	}

	envelope, err := b.store.Load(b.name)
	if errors.Is(err, os.ErrNotExist) {
		return b.reset()
	}
	if err != nil {
		return fmt.Errorf("loading state for %s: %w", b.name, err)
	}

	if envelope.Version != b.version {
		b.logger.Info("discarding state written by another version",
			"state_version", envelope.Version,
			"version", b.version,
		)
		if err := b.archive(envelope.Version); err != nil {
			return err
		}
		return b.reset()
	}

	if err := b.reset(); err != nil {
		return err
	}
	b.enabled.Store(envelope.Enabled)
	if b.state != nil && len(envelope.Data) > 0 {
		if err := codec.Unmarshal(envelope.Data, b.state); err != nil {
			return fmt.Errorf("decoding state for %s: %w", b.name, err)
		}
	}
	return nil
}

// reset restores the defaults captured at construction.
func (b *Base) reset() error {
	b.enabled.Store(b.defaultEnabled)
	if b.state == nil {
		return nil
	}
	reflect.ValueOf(b.state).Elem().SetZero()
	if err := codec.Unmarshal(b.defaults, b.state); err != nil {
		return fmt.Errorf("restoring default state for %s: %w", b.name, err)
	}
	return nil
}

func (b *Base) archive(version string) error {
	path, err := b.store.Archive(b.name, version)
	if err != nil {
		return err
	}
	if path != "" {
		b.logger.Info("archived previous state", "previous_version", version, "archive", path)
	}
	return nil
}

// SaveState persists the enabled flag and state. It does nothing until
// the module has caught up, so replaying history never writes.
func (b *Base) SaveState() error {
	if b.store == nil || !b.caughtUp.Load() {
		return nil
	}

	envelope := statestore.Envelope{Version: b.version, Enabled: b.enabled.Load()}
	if b.state != nil {
		data, err := codec.Marshal(b.state)
		if err != nil {
			return fmt.Errorf("encoding state for %s: %w", b.name, err)
		}
		envelope.Data = data
	}

	written, err := b.store.Save(b.name, envelope)
	if err != nil {
		return err
	}
	if written {
		b.logger.Debug("state saved")
	}
	return nil
}

// HandleEvent marks the module caught up on the CaughtUp record and
// announces a first boot or version reset.
func (b *Base) HandleEvent(ctx context.Context, record journal.Record, tasks *TaskGroup) error {
	if record.Event != journal.CaughtUpEvent || b.caughtUp.Load() {
		return nil
	}
	b.caughtUp.Store(true)

	switch {
	case b.firstBoot:
		b.Print("first run, starting with fresh state")
	case b.previousVersion != "":
		b.Printf("updated from %s to %s, previous state archived", b.previousVersion, b.version)
	}
	return b.SaveState()
}

// Command handles the commands every module understands and reports
// whether args were consumed. args[0] is the alias. Anything else is
// refused while the module is disabled or still replaying.
func (b *Base) Command(args []string) bool {
	if len(args) < 2 {
		b.Printf("%s, version %s", b.status(), b.version)
		return true
	}

	switch args[1] {
	case "enable":
		b.Enable()
		b.Print("enabled")
		return true
	case "disable":
		b.Disable()
		b.Print("disabled")
		return true
	case "version":
		b.Printf("version %s", b.version)
		return true
	}

	if !b.Enabled() {
		b.Printf("module is disabled, use '%s enable' first", args[0])
		return true
	}
	if !b.CaughtUp() {
		b.logger.Info("ignoring command until the journal is caught up", "command", strings.Join(args, " "))
		return true
	}
	return false
}

func (b *Base) status() string {
	if b.Enabled() {
		return "enabled"
	}
	return "disabled"
}

// Print writes one line of module output. Suppressed until caught up.
func (b *Base) Print(text string) {
	if !b.caughtUp.Load() {
		return
	}
	b.printer.Print(text)
}

// Printf is Print with formatting.
func (b *Base) Printf(format string, args ...any) {
	if !b.caughtUp.Load() {
		return
	}
	b.printer.Print(fmt.Sprintf(format, args...))
}
