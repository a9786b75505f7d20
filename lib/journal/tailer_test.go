// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stellar-survey/edsst/lib/clock"
	"github.com/stellar-survey/edsst/lib/testutil"
)

const (
	firstJournal  = "Journal.2026-10-19T120000.01.log"
	secondJournal = "Journal.2026-10-19T130000.01.log"
	thirdJournal  = "Journal.2026-10-19T140000.01.log"
)

type fakeNotifier struct {
	changes chan Change
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{changes: make(chan Change, 16)}
}

func (n *fakeNotifier) Changes() <-chan Change { return n.changes }

func (n *fakeNotifier) notify(t *testing.T, name string) {
	t.Helper()
	testutil.RequireSend(t, n.changes, Change{Name: name}, 5*time.Second, "notifying %s", name)
}

type tailerHarness struct {
	tailer   *Tailer
	notifier *fakeNotifier
	records  chan Record
	cancel   context.CancelFunc
	done     chan error
}

func startTailer(t *testing.T, directory string, configure func(*TailerConfig)) *tailerHarness {
	t.Helper()
	notifier := newFakeNotifier()
	config := TailerConfig{
		Locator:  Locator{Directory: directory},
		Notifier: notifier,
	}
	if configure != nil {
		configure(&config)
	}
	harness := &tailerHarness{
		tailer:   NewTailer(config),
		notifier: notifier,
		records:  make(chan Record, 256),
		done:     make(chan error, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	harness.cancel = cancel
	go func() { harness.done <- harness.tailer.Run(ctx, harness.records) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-harness.done:
		case <-time.After(5 * time.Second):
			t.Error("tailer did not stop after cancellation")
		}
	})
	return harness
}

// expect receives len(events) records and checks their event names and,
// for non-empty markers, their "Seq" field.
func (h *tailerHarness) expect(t *testing.T, events ...string) {
	t.Helper()
	for i, want := range events {
		record := testutil.RequireReceive(t, h.records, 5*time.Second, "record %d (%s)", i, want)
		got := record.Event
		if seq := record.String("Seq"); seq != "" {
			got = seq
		}
		if got != want {
			t.Fatalf("record %d = %s, want %s", i, got, want)
		}
	}
}

func (h *tailerHarness) waitForState(t *testing.T, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.tailer.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("tailer state = %s, want %s", h.tailer.State(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func seq(id string) string {
	return testutil.Event("Music", "Seq", id)
}

func TestTailerReplayThenLive(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	path := filepath.Join(directory, firstJournal)
	testutil.AppendLines(t, path, seq("r1"), "", "not json", seq("r2"), seq("r3"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", "r2", "r3", CaughtUpEvent)
	harness.waitForState(t, StateLive)

	testutil.AppendLines(t, path, seq("l1"), seq("l2"))
	harness.notifier.notify(t, firstJournal)
	harness.expect(t, "l1", "l2")

	// A duplicate notification with nothing new produces nothing; the
	// next record is the next line.
	harness.notifier.notify(t, firstJournal)
	testutil.AppendLines(t, path, seq("l3"))
	harness.notifier.notify(t, firstJournal)
	harness.expect(t, "l3")
}

func TestTailerHoldsPartialLine(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	path := filepath.Join(directory, firstJournal)
	testutil.AppendLines(t, path, seq("r1"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", CaughtUpEvent)

	line := seq("split")
	appendRaw(t, path, line[:10])
	harness.notifier.notify(t, firstJournal)
	appendRaw(t, path, line[10:]+"\r\n")
	harness.notifier.notify(t, firstJournal)
	harness.expect(t, "split")
}

func TestTailerRotation(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	first := filepath.Join(directory, firstJournal)
	second := filepath.Join(directory, secondJournal)
	testutil.AppendLines(t, first, seq("r1"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", CaughtUpEvent)

	// Writes to the old file interleave with the new file's creation
	// and are only noticed through the new file's notification.
	testutil.AppendLines(t, first, seq("a1"), seq("a2"))
	testutil.AppendLines(t, second, seq("b1"))
	testutil.AppendLines(t, first, seq("a3"))
	harness.notifier.notify(t, secondJournal)
	harness.expect(t, "a1", "a2", "a3", "b1")
	harness.waitForState(t, StateLive)

	// Late notifications for the old file and repeats for the new one
	// are no-ops.
	harness.notifier.notify(t, firstJournal)
	harness.notifier.notify(t, secondJournal)
	testutil.AppendLines(t, second, seq("b2"))
	harness.notifier.notify(t, secondJournal)
	harness.expect(t, "b2")
}

func TestTailerRotationFlushesPartialLine(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	first := filepath.Join(directory, firstJournal)
	testutil.AppendLines(t, first, seq("r1"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", CaughtUpEvent)

	appendRaw(t, first, seq("unterminated"))
	testutil.AppendLines(t, filepath.Join(directory, secondJournal), seq("b1"))
	harness.notifier.notify(t, secondJournal)
	harness.expect(t, "unterminated", "b1")
}

func TestTailerShutdownWaitsForProducer(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	first := filepath.Join(directory, firstJournal)
	testutil.AppendLines(t, first, seq("r1"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", CaughtUpEvent)

	testutil.AppendLines(t, first, seq("l1"), testutil.Event(ShutdownEvent))
	harness.notifier.notify(t, firstJournal)
	harness.expect(t, "l1", ShutdownEvent)
	harness.waitForState(t, StateWaitingForProducer)

	// The next launch writes a new file, replayed without a marker.
	testutil.AppendLines(t, filepath.Join(directory, secondJournal), seq("n1"), seq("n2"))
	harness.notifier.notify(t, secondJournal)
	harness.expect(t, "n1", "n2")
	harness.waitForState(t, StateLive)

	testutil.AppendLines(t, filepath.Join(directory, secondJournal), seq("n3"))
	harness.notifier.notify(t, secondJournal)
	harness.expect(t, "n3")
}

func TestTailerShutdownDuringReplay(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.AppendLines(t, filepath.Join(directory, firstJournal), seq("r1"), testutil.Event(ShutdownEvent))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", ShutdownEvent, CaughtUpEvent)
	harness.waitForState(t, StateWaitingForProducer)

	testutil.AppendLines(t, filepath.Join(directory, thirdJournal), seq("n1"))
	harness.notifier.notify(t, thirdJournal)
	harness.expect(t, "n1")
}

func TestTailerTruncation(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	path := filepath.Join(directory, firstJournal)
	testutil.AppendLines(t, path, seq("r1"), seq("r2"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", "r2", CaughtUpEvent)

	if err := os.WriteFile(path, []byte(seq("t1")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	harness.notifier.notify(t, firstJournal)
	harness.expect(t, "t1")
}

func TestTailerIgnoresUnrelatedFiles(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	path := filepath.Join(directory, firstJournal)
	testutil.AppendLines(t, path, seq("r1"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", CaughtUpEvent)

	testutil.AppendLines(t, filepath.Join(directory, "Status.json"), `{"event":"Status"}`)
	harness.notifier.notify(t, "Status.json")
	testutil.AppendLines(t, path, seq("l1"))
	harness.notifier.notify(t, firstJournal)
	harness.expect(t, "l1")
}

func TestTailerSkipsReservedEventName(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.AppendLines(t, filepath.Join(directory, firstJournal), `{"event":"CaughtUp"}`, seq("r1"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", CaughtUpEvent)
}

func TestTailerPollInterval(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	path := filepath.Join(directory, firstJournal)
	testutil.AppendLines(t, path, seq("r1"))

	fake := clock.Fake(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	harness := startTailer(t, directory, func(config *TailerConfig) {
		config.Clock = fake
		config.PollInterval = time.Second
	})
	harness.expect(t, "r1", CaughtUpEvent)
	fake.WaitForTimers(1)

	testutil.AppendLines(t, path, seq("p1"))
	fake.Advance(time.Second)
	harness.expect(t, "p1")

	testutil.AppendLines(t, filepath.Join(directory, secondJournal), seq("p2"))
	fake.Advance(time.Second)
	harness.expect(t, "p2")
}

func TestTailerNotFound(t *testing.T) {
	t.Parallel()

	tailer := NewTailer(TailerConfig{
		Locator:  Locator{Directory: t.TempDir()},
		Notifier: newFakeNotifier(),
	})
	records := make(chan Record, 1)
	err := tailer.Run(context.Background(), records)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Run = %v, want ErrNotFound", err)
	}
	if _, ok := <-records; ok {
		t.Error("records channel not closed")
	}
	if tailer.State() != StateStopped {
		t.Errorf("State = %s, want stopped", tailer.State())
	}
}

func TestTailerCancellation(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.AppendLines(t, filepath.Join(directory, firstJournal), seq("r1"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", CaughtUpEvent)
	harness.cancel()

	err := testutil.RequireReceive(t, harness.done, 5*time.Second, "Run to return")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	harness.done <- err
	testutil.RequireClosed(t, harness.records, 5*time.Second, "records after cancel")
}

func TestTailerNotifierClosed(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	testutil.AppendLines(t, filepath.Join(directory, firstJournal), seq("r1"))

	harness := startTailer(t, directory, nil)
	harness.expect(t, "r1", CaughtUpEvent)
	close(harness.notifier.changes)

	err := testutil.RequireReceive(t, harness.done, 5*time.Second, "Run to return")
	if !errors.Is(err, ErrNotifierClosed) {
		t.Errorf("Run = %v, want ErrNotifierClosed", err)
	}
	harness.done <- err
}

func TestTailerWithInotify(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	path := filepath.Join(directory, firstJournal)
	testutil.AppendLines(t, path, seq("r1"))

	watcher, err := WatchDirectory(directory)
	if err != nil {
		t.Fatalf("WatchDirectory: %v", err)
	}
	defer watcher.Close()

	tailer := NewTailer(TailerConfig{Locator: Locator{Directory: directory}, Notifier: watcher})
	records := make(chan Record, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tailer.Run(ctx, records)

	for _, want := range []string{"r1", CaughtUpEvent} {
		record := testutil.RequireReceive(t, records, 5*time.Second, "replay")
		if got := record.String("Seq"); got != want && record.Event != want {
			t.Fatalf("replayed %s, want %s", record.Raw(), want)
		}
	}

	testutil.AppendLines(t, path, seq("l1"))
	record := testutil.RequireReceive(t, records, 5*time.Second, "live record")
	if record.String("Seq") != "l1" {
		t.Fatalf("live record = %s", record.Raw())
	}
}

func appendRaw(t *testing.T, path, text string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if _, err := file.WriteString(text); err != nil {
		t.Fatal(err)
	}
}
