// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package fssreporter prints a summary of the current system once the
// Full Spectrum Scanner has found every body.
package fssreporter

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stellar-survey/edsst/lib/clock"
	"github.com/stellar-survey/edsst/lib/journal"
	"github.com/stellar-survey/edsst/lib/subscriber"
	"github.com/stellar-survey/edsst/modules/core"
)

const (
	Name    = "FSSReporter"
	Version = "0.1.0"
)

// Aliases route console commands to the reporter.
var Aliases = []string{"fss", "fssreport"}

// DefaultDelay gives the game time to write the Scan events that
// follow FSSAllBodiesFound.
const DefaultDelay = time.Second

// Options configures the reporter beyond the shared subscriber options.
type Options struct {
	Core  *core.Module
	Clock clock.Clock
	Delay time.Duration
}

// Module is the FSS reporter subscriber.
type Module struct {
	*subscriber.Base

	core   *core.Module
	clock  clock.Clock
	delay  time.Duration
	styles styles

	scheduled bool
}

// New returns the reporter.
func New(base subscriber.Options, options Options) (*Module, error) {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Delay <= 0 {
		options.Delay = DefaultDelay
	}
	renderer := base.Renderer
	if renderer == nil {
		out := base.Output
		if out == nil {
			out = io.Discard
		}
		renderer = lipgloss.NewRenderer(out)
	}

	base.Name = Name
	base.Version = Version
	base.Aliases = Aliases
	base.State = nil
	b, err := subscriber.NewBase(base)
	if err != nil {
		return nil, err
	}
	return &Module{
		Base:   b,
		core:   options.Core,
		clock:  options.Clock,
		delay:  options.Delay,
		styles: newStyles(renderer),
	}, nil
}

func (m *Module) HandleEvent(ctx context.Context, record journal.Record, tasks *subscriber.TaskGroup) error {
	if err := m.Base.HandleEvent(ctx, record, tasks); err != nil {
		return err
	}

	switch record.Event {
	case "FSSAllBodiesFound":
		if m.scheduled {
			return nil
		}
		m.scheduled = true
		if !m.CaughtUp() {
			return nil
		}
		tasks.Go("fssreporter/report", func(ctx context.Context) error {
			select {
			case <-m.clock.After(m.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			tasks.Exclusive(func() {
				if m.Enabled() {
					m.Print("\n" + m.Report())
				}
			})
			return nil
		})
	case "FSDJump", "CarrierJump":
		m.scheduled = false
	}
	return nil
}

func (m *Module) HandleCommand(ctx context.Context, args []string, tasks *subscriber.TaskGroup) error {
	if m.Command(args) {
		return nil
	}
	switch args[1] {
	case "report":
		m.Print("\n" + m.Report())
	default:
		m.Printf("unknown command %q, try 'fss report'", args[1])
	}
	return nil
}
