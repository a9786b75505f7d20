// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package edsm uploads the commander's journal to EDSM. Lines are
// buffered as they arrive and sent in one batch when a hyperspace jump
// starts.
package edsm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/stellar-survey/edsst/lib/clock"
	edsmapi "github.com/stellar-survey/edsst/lib/edsm"
	"github.com/stellar-survey/edsst/lib/journal"
	"github.com/stellar-survey/edsst/lib/statestore"
	"github.com/stellar-survey/edsst/lib/subscriber"
)

const (
	Name    = "EDSM"
	Version = "0.1.0"

	// DumpFilename receives the unsent buffer when EDSM rejects an
	// upload.
	DumpFilename = "errordump.json"
)

// Aliases route console commands to the uploader.
var Aliases = []string{"edsmintegration", "edsmsender"}

// Uploader is the part of the EDSM client the module needs.
// *edsmapi.Client implements it.
type Uploader interface {
	CanUpload() bool
	Discard(ctx context.Context) ([]string, error)
	PostJournal(ctx context.Context, batch edsmapi.JournalBatch) (*edsmapi.JournalResponse, error)
}

// Options configures the uploader beyond the shared subscriber options.
type Options struct {
	Uploader Uploader
	Clock    clock.Clock

	// DumpPath overrides the rejection dump location. Defaults to
	// DumpFilename in the store's directory for the module.
	DumpPath string
}

// Module is the EDSM upload subscriber.
type Module struct {
	*subscriber.Base

	uploader Uploader
	clock    clock.Clock
	dumpPath string

	buffer      []json.RawMessage
	discard     map[string]bool
	gameVersion string
	gameBuild   string
	canSend     bool
	sending     bool

	// discardState tracks the discard list fetch so it runs once, and
	// only while the module is enabled.
	discardState fetchState
}

type fetchState int

const (
	fetchPending fetchState = iota
	fetchRunning
	fetchDone
)

// New returns the uploader module.
func New(base subscriber.Options, options Options) (*Module, error) {
	if options.Uploader == nil {
		return nil, errors.New("edsm module requires an uploader")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.DumpPath == "" && base.Store != nil {
		options.DumpPath = filepath.Join(base.Store.Directory(Name), DumpFilename)
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
		Base:     b,
		uploader: options.Uploader,
		clock:    options.Clock,
		dumpPath: options.DumpPath,
		discard:  make(map[string]bool),
	}, nil
}

// Buffered returns the number of lines waiting to be sent.
func (m *Module) Buffered() int { return len(m.buffer) }

func (m *Module) HandleEvent(ctx context.Context, record journal.Record, tasks *subscriber.TaskGroup) error {
	if err := m.Base.HandleEvent(ctx, record, tasks); err != nil {
		return err
	}
	if record.Event == journal.CaughtUpEvent {
		m.fetchDiscard(tasks)
		return nil
	}
	if record.Synthetic() {
		return nil
	}

	if !m.discard[record.Event] {
		m.buffer = append(m.buffer, json.RawMessage(record.Raw()))
	}

	switch record.Event {
	case "Fileheader":
		m.gameVersion = record.String("gameversion")
		m.gameBuild = record.String("build")
		m.canSend = true
	case "FSDJump":
		m.canSend = true
	case "StartJump":
		if m.CaughtUp() {
			m.post(tasks)
		} else {
			m.buffer = nil
		}
	}
	return nil
}

func (m *Module) HandleCommand(ctx context.Context, args []string, tasks *subscriber.TaskGroup) error {
	if m.Command(args) {
		if len(args) > 1 && args[1] == "enable" {
			m.fetchDiscard(tasks)
		}
		return nil
	}
	switch args[1] {
	case "send", "push", "post":
		switch {
		case !m.uploader.CanUpload():
			m.Print("set the commander name and EDSM API key to upload")
		case !m.canSend:
			m.Print("waiting for the journal header before sending")
		case len(m.buffer) == 0:
			m.Print("nothing to send")
		default:
			m.post(tasks)
		}
	case "displaybuffer":
		lines := make([]string, len(m.buffer))
		for i, line := range m.buffer {
			lines[i] = string(line)
		}
		m.Printf("%d buffered events:\n%s", len(lines), strings.Join(lines, "\n"))
	case "displayignored":
		ignored := make([]string, 0, len(m.discard))
		for event := range m.discard {
			ignored = append(ignored, event)
		}
		slices.Sort(ignored)
		m.Printf("ignored event types: %s", strings.Join(ignored, ", "))
	default:
		m.Printf("unknown command %q", args[1])
	}
	return nil
}

// fetchDiscard loads the discard list once the module is caught up and
// enabled. A failed fetch is retried on the next enable.
func (m *Module) fetchDiscard(tasks *subscriber.TaskGroup) {
	if !m.Enabled() || !m.CaughtUp() || m.discardState != fetchPending {
		return
	}
	m.discardState = fetchRunning
	tasks.Go("edsm/discard", func(ctx context.Context) error {
		events, err := m.uploader.Discard(ctx)
		if err != nil {
			m.Logger().Warn("could not fetch the EDSM discard list, uploading every event", "error", err)
			tasks.Exclusive(func() { m.discardState = fetchPending })
			return nil
		}
		tasks.Exclusive(func() {
			m.discardState = fetchDone
			for _, event := range events {
				m.discard[event] = true
			}
			m.buffer = slices.DeleteFunc(m.buffer, func(line json.RawMessage) bool {
				record, err := journal.Parse(line)
				return err == nil && m.discard[record.Event]
			})
		})
		return nil
	})
}

// post hands the buffer to an upload task. The buffer starts over; lines
// arriving during the upload are kept behind the batch.
func (m *Module) post(tasks *subscriber.TaskGroup) {
	if m.sending || !m.canSend || len(m.buffer) == 0 || !m.uploader.CanUpload() {
		return
	}
	batch := edsmapi.JournalBatch{
		GameVersion: m.gameVersion,
		GameBuild:   m.gameBuild,
		Events:      m.buffer,
	}
	m.buffer = nil
	m.sending = true

	tasks.Go("edsm/post", func(ctx context.Context) error {
		start := m.clock.Now()
		response, err := m.uploader.PostJournal(ctx, batch)
		elapsed := m.clock.Now().Sub(start)
		tasks.Exclusive(func() {
			m.finishPost(batch.Events, response, err, elapsed)
		})
		return nil
	})
}

func (m *Module) finishPost(events []json.RawMessage, response *edsmapi.JournalResponse, err error, elapsed time.Duration) {
	m.sending = false
	if err != nil {
		m.requeue(events)
		m.Printf("upload to EDSM failed, will retry on the next jump: %v", err)
		m.Logger().Warn("journal upload failed", "events", len(events), "error", err)
		return
	}

	if err := response.Check(); err != nil {
		m.requeue(events)
		m.Print(err.Error())
		if dumpErr := m.dump(); dumpErr != nil {
			m.Printf("could not write the error dump: %v", dumpErr)
		}
		m.canSend = false
		m.Disable()
		m.Print("disabled, use 'edsm enable' after fixing the problem")
		return
	}

	warnings := response.Warnings()
	indexes := make([]int, 0, len(warnings))
	for index := range warnings {
		indexes = append(indexes, index)
	}
	slices.Sort(indexes)
	for _, index := range indexes {
		m.Printf("warning: code %d on event %d: %s", warnings[index].MsgNum, index, warnings[index].Msg)
	}
	m.Printf("sent %d events to EDSM in %.2fs", len(events), elapsed.Seconds())
}

func (m *Module) requeue(events []json.RawMessage) {
	m.buffer = append(slices.Clone(events), m.buffer...)
}

// dump writes the buffer, one line per event, for inspection.
func (m *Module) dump() error {
	if m.dumpPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.dumpPath), 0o755); err != nil {
		return err
	}
	lines := make([]string, len(m.buffer))
	for i, line := range m.buffer {
		lines[i] = string(line)
	}
	if err := statestore.WriteFile(m.dumpPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", m.dumpPath, err)
	}
	return nil
}
