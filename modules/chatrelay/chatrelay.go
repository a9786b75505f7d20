// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatrelay lets the commander type console commands into the
// in-game local chat.
package chatrelay

import (
	"context"
	"strings"

	"github.com/stellar-survey/edsst/lib/dispatch"
	"github.com/stellar-survey/edsst/lib/journal"
	"github.com/stellar-survey/edsst/lib/subscriber"
)

const (
	Name    = "ChatRelay"
	Version = "0.1.0"
)

// Aliases route console commands to the relay.
var Aliases = []string{"chatboxrelay", "textrelay", "commsrelay"}

// Submitter routes a command line. *dispatch.Hub implements it.
type Submitter interface {
	Submit(ctx context.Context, line string) []dispatch.Outcome
}

// State is the persisted relay state.
type State struct {
	Listening bool `cbor:"listening"`
}

// Module is the chat relay subscriber.
type Module struct {
	*subscriber.Base

	state     *State
	submitter Submitter

	// pending holds relayed lines not yet submitted. draining is set
	// while a task is submitting them.
	pending  []string
	draining bool
}

// New returns the relay. submitter is usually the hub the module is
// registered with.
func New(base subscriber.Options, submitter Submitter) (*Module, error) {
	state := &State{}
	base.Name = Name
	base.Version = Version
	base.Aliases = Aliases
	base.State = state
	b, err := subscriber.NewBase(base)
	if err != nil {
		return nil, err
	}
	return &Module{Base: b, state: state, submitter: submitter}, nil
}

// Listening reports whether local chat is relayed.
func (m *Module) Listening() bool { return m.state.Listening }

func (m *Module) HandleEvent(ctx context.Context, record journal.Record, tasks *subscriber.TaskGroup) error {
	if err := m.Base.HandleEvent(ctx, record, tasks); err != nil {
		return err
	}
	if record.Event != "SendText" || record.String("To") != "Local" {
		return nil
	}
	if !m.CaughtUp() || !m.state.Listening {
		return nil
	}

	line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(record.String("Message")), "!"))
	args := dispatch.Tokenize(line)
	if len(args) == 0 {
		return nil
	}
	if args[0] == dispatch.ExitCommand {
		m.Print("exit cannot be relayed from the game")
		return nil
	}

	m.pending = append(m.pending, line)
	if !m.draining {
		m.draining = true
		tasks.Go("chatrelay/submit", func(ctx context.Context) error {
			m.drain(ctx, tasks)
			return nil
		})
	}
	return nil
}

// drain submits queued lines in arrival order. Handlers run under the
// hub lock that Submit takes, so it runs as a task and takes the lock
// only to pop the queue.
func (m *Module) drain(ctx context.Context, tasks *subscriber.TaskGroup) {
	for {
		var line string
		tasks.Exclusive(func() {
			if len(m.pending) == 0 {
				m.draining = false
				return
			}
			line = m.pending[0]
			m.pending = m.pending[1:]
		})
		if line == "" {
			return
		}
		for _, outcome := range m.submitter.Submit(ctx, line) {
			m.Logger().Warn("relayed command failed", "subscriber", outcome.Subscriber, "error", outcome.Err)
		}
	}
}

func (m *Module) HandleCommand(ctx context.Context, args []string, tasks *subscriber.TaskGroup) error {
	if m.Command(args) {
		return nil
	}
	switch args[1] {
	case "start":
		m.state.Listening = true
		m.Print("relaying local chat")
	case "stop":
		m.state.Listening = false
		m.Print("stopped relaying local chat")
	default:
		m.Printf("unknown command %q, try 'chatrelay start' or 'chatrelay stop'", args[1])
		return nil
	}
	return m.SaveState()
}
