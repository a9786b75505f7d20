// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/stellar-survey/edsst/lib/clock"
)

// State is the tailer's position in its lifecycle.
type State int32

const (
	StateLocating State = iota
	StateReplaying
	StateCaughtUp
	StateLive
	StateRotating
	StateWaitingForProducer
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateLocating:
		return "locating"
	case StateReplaying:
		return "replaying"
	case StateCaughtUp:
		return "caught-up"
	case StateLive:
		return "live"
	case StateRotating:
		return "rotating"
	case StateWaitingForProducer:
		return "waiting-for-producer"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrNotifierClosed is returned by Run when the notifier stops
// delivering changes.
var ErrNotifierClosed = errors.New("journal notifier closed")

// TailerConfig configures a Tailer.
type TailerConfig struct {
	// Locator finds the current journal file. Required.
	Locator Locator

	// Notifier delivers directory changes. Required. It must already be
	// watching when Run is called.
	Notifier Notifier

	// Clock drives the optional poll ticker. Defaults to clock.Real().
	Clock clock.Clock

	// PollInterval, when positive, re-checks the journal on a timer in
	// addition to notifier changes. Covers filesystems where inotify
	// misses writes (network mounts, some Proton prefixes).
	PollInterval time.Duration

	// Logger receives lifecycle and skipped-line messages. Defaults to
	// a discarding logger.
	Logger *slog.Logger
}

// Tailer reads the journal directory as one ordered record stream.
// A Tailer is single-use: call Run once.
type Tailer struct {
	locator      Locator
	notifier     Notifier
	clock        clock.Clock
	pollInterval time.Duration
	logger       *slog.Logger

	state      atomic.Int32
	markerSent bool

	// consumed is the number of bytes read from each path so far,
	// including any partial line still held in current.partial.
	consumed map[string]int64
	current  *openJournal
}

type openJournal struct {
	path    string
	file    *os.File
	offset  int64
	partial []byte

	// finished is set once the file's Shutdown record has been read.
	// The file is closed and only a newer file can resume the stream.
	finished bool
}

// NewTailer returns a Tailer for config.
func NewTailer(config TailerConfig) *Tailer {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	tailer := &Tailer{
		locator:      config.Locator,
		notifier:     config.Notifier,
		clock:        config.Clock,
		pollInterval: config.PollInterval,
		logger:       config.Logger,
		consumed:     make(map[string]int64),
	}
	tailer.setState(StateLocating)
	return tailer
}

// State returns the current lifecycle state. Safe for concurrent use.
func (t *Tailer) State() State {
	return State(t.state.Load())
}

func (t *Tailer) setState(state State) {
	t.state.Store(int32(state))
}

// Run replays the current journal, sends the CaughtUp record, and then
// follows the journal until ctx is cancelled or a fatal error occurs.
// It closes records before returning. The returned error is ctx.Err()
// after cancellation, or a wrapped ErrNotFound when the directory holds
// no journal at startup.
func (t *Tailer) Run(ctx context.Context, records chan<- Record) error {
	defer close(records)
	defer t.setState(StateStopped)
	defer t.closeCurrent()

	t.setState(StateLocating)
	path, err := t.locator.Locate()
	if err != nil {
		return fmt.Errorf("locating journal: %w", err)
	}

	t.setState(StateReplaying)
	if err := t.open(path); err != nil {
		return err
	}
	if err := t.drain(ctx, records); err != nil {
		return err
	}
	t.logger.Info("synchronized to journal file", "file", filepath.Base(path))

	t.setState(StateCaughtUp)
	if !t.markerSent {
		if err := send(ctx, records, CaughtUp()); err != nil {
			return err
		}
		t.markerSent = true
	}
	t.settle()

	var ticks <-chan time.Time
	if t.pollInterval > 0 {
		ticker := t.clock.NewTicker(t.pollInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	changes := t.notifier.Changes()
	for {
		var err error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return ErrNotifierClosed
			}
			err = t.handleChange(ctx, records, change.Name)
		case <-ticks:
			err = t.handleChange(ctx, records, "")
		}
		if err != nil {
			return err
		}
	}
}

// handleChange reacts to a change hint. An empty name checks both the
// current file and the directory.
func (t *Tailer) handleChange(ctx context.Context, records chan<- Record, name string) error {
	if name != "" && !Matches(name) {
		return nil
	}

	isCurrent := t.current != nil && name == filepath.Base(t.current.path)
	if name == "" || isCurrent {
		if err := t.drain(ctx, records); err != nil {
			return err
		}
		if isCurrent {
			return nil
		}
	}
	return t.rotate(ctx, records)
}

// rotate switches to the newest journal file if it differs from the
// current one. The old file is drained first so no line written to it
// before the switch is lost.
func (t *Tailer) rotate(ctx context.Context, records chan<- Record) error {
	path, err := t.locator.Locate()
	if err != nil {
		t.logger.Warn("rescanning journal directory", "error", err)
		return nil
	}
	if t.current != nil && (path == t.current.path || !Newer(path, t.current.path)) {
		return nil
	}

	t.setState(StateRotating)
	if t.current != nil && !t.current.finished {
		if err := t.drain(ctx, records); err != nil {
			return err
		}
		if err := t.flushPartial(ctx, records); err != nil {
			return err
		}
	}
	t.closeCurrent()

	if err := t.open(path); err != nil {
		t.logger.Warn("opening new journal file", "file", filepath.Base(path), "error", err)
		t.current = nil
		t.setState(StateWaitingForProducer)
		return nil
	}
	if err := t.drain(ctx, records); err != nil {
		return err
	}
	t.logger.Info("synchronized to journal file", "file", filepath.Base(path))
	t.settle()
	return nil
}

// settle moves to Live, or to WaitingForProducer when the current file
// has already ended.
func (t *Tailer) settle() {
	if t.current == nil || t.current.finished {
		t.setState(StateWaitingForProducer)
		return
	}
	t.setState(StateLive)
}

func (t *Tailer) open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening journal %s: %w", filepath.Base(path), err)
	}
	t.current = &openJournal{
		path:   path,
		file:   file,
		offset: t.consumed[path],
	}
	return nil
}

// closeCurrent releases the open file but keeps t.current so later
// rotation checks can compare against its path.
func (t *Tailer) closeCurrent() {
	if t.current == nil || t.current.file == nil {
		return
	}
	t.current.file.Close()
	t.current.file = nil
}

// drain reads everything appended to the current file since the last
// read and sends each complete line as a record.
func (t *Tailer) drain(ctx context.Context, records chan<- Record) error {
	current := t.current
	if current == nil || current.file == nil {
		return nil
	}

	if info, err := current.file.Stat(); err == nil && info.Size() < current.offset {
		t.logger.Warn("journal file truncated, rereading from start",
			"file", filepath.Base(current.path),
			"size", info.Size(),
			"offset", current.offset,
		)
		current.offset = 0
		current.partial = nil
	}

	if _, err := current.file.Seek(current.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking journal %s: %w", filepath.Base(current.path), err)
	}
	data, err := io.ReadAll(current.file)
	if err != nil {
		return fmt.Errorf("reading journal %s: %w", filepath.Base(current.path), err)
	}
	current.offset += int64(len(data))
	t.consumed[current.path] = current.offset

	if len(current.partial) > 0 {
		data = append(current.partial, data...)
		current.partial = nil
	}

	shutdown := false
	for {
		newline := bytes.IndexByte(data, '\n')
		if newline < 0 {
			break
		}
		line := data[:newline]
		data = data[newline+1:]

		record, ok := t.decode(current.path, line)
		if !ok {
			continue
		}
		if err := send(ctx, records, record); err != nil {
			return err
		}
		if record.Event == ShutdownEvent {
			shutdown = true
		}
	}
	if len(data) > 0 {
		current.partial = bytes.Clone(data)
	}

	if shutdown {
		t.logger.Info("game shut down, waiting for a new journal file", "file", filepath.Base(current.path))
		if err := t.flushPartial(ctx, records); err != nil {
			return err
		}
		current.finished = true
		t.closeCurrent()
		if t.markerSent {
			t.setState(StateWaitingForProducer)
		}
	}
	return nil
}

// flushPartial decodes a held line that will never see its newline.
func (t *Tailer) flushPartial(ctx context.Context, records chan<- Record) error {
	current := t.current
	if current == nil || len(current.partial) == 0 {
		return nil
	}
	line := current.partial
	current.partial = nil
	record, ok := t.decode(current.path, line)
	if !ok {
		return nil
	}
	return send(ctx, records, record)
}

func (t *Tailer) decode(path string, line []byte) (Record, bool) {
	record, err := Parse(line)
	if err != nil {
		if !errors.Is(err, ErrEmptyLine) {
			t.logger.Debug("skipping journal line", "file", filepath.Base(path), "error", err)
		}
		return Record{}, false
	}
	if record.Synthetic() {
		t.logger.Warn("skipping journal line with reserved event name", "file", filepath.Base(path), "event", record.Event)
		return Record{}, false
	}
	return record, true
}

func send(ctx context.Context, records chan<- Record, record Record) error {
	select {
	case records <- record:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
