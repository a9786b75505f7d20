// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package edsm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	edsmapi "github.com/stellar-survey/edsst/lib/edsm"
	"github.com/stellar-survey/edsst/lib/journal"
	"github.com/stellar-survey/edsst/lib/statestore"
	"github.com/stellar-survey/edsst/lib/subscriber"
)

const (
	fileheader = `{"timestamp":"2026-10-19T12:00:00Z","event":"Fileheader","part":1,"gameversion":"4.0.0.1904","build":"r308767/r0 "}`
	music      = `{"timestamp":"2026-10-19T12:00:01Z","event":"Music","MusicTrack":"NoTrack"}`
	location   = `{"timestamp":"2026-10-19T12:00:02Z","event":"Location","StarSystem":"Sol","StarPos":[0,0,0]}`
	startJump  = `{"timestamp":"2026-10-19T12:01:00Z","event":"StartJump","JumpType":"Hyperspace","StarSystem":"Alpha Centauri"}`
	fsdJump    = `{"timestamp":"2026-10-19T12:01:20Z","event":"FSDJump","StarSystem":"Alpha Centauri","StarPos":[3.03125,-0.09375,3.15625]}`
)

type fakeUploader struct {
	mu        sync.Mutex
	discard   []string
	responses []*edsmapi.JournalResponse
	errs      []error
	batches   []edsmapi.JournalBatch
	fetches   int
}

func (f *fakeUploader) CanUpload() bool { return true }

func (f *fakeUploader) Discard(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.discard, nil
}

func (f *fakeUploader) discardFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeUploader) PostJournal(ctx context.Context, batch edsmapi.JournalBatch) (*edsmapi.JournalResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	index := len(f.batches) - 1
	if index < len(f.errs) && f.errs[index] != nil {
		return nil, f.errs[index]
	}
	if index < len(f.responses) {
		return f.responses[index], nil
	}
	return &edsmapi.JournalResponse{MsgNum: edsmapi.CodeOK, Msg: "OK"}, nil
}

func (f *fakeUploader) events(batch int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []string
	for _, raw := range f.batches[batch].Events {
		record, err := journal.Parse(raw)
		if err != nil {
			panic(err)
		}
		events = append(events, record.Event)
	}
	return events
}

type harness struct {
	module   *Module
	uploader Uploader
	output   *bytes.Buffer
	store    *statestore.Store
	lock     *sync.Mutex
	tasks    *subscriber.TaskGroup
}

func newHarness(t *testing.T, uploader Uploader) *harness {
	t.Helper()
	store, err := statestore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	output := &bytes.Buffer{}
	module, err := New(subscriber.Options{Store: store, Output: output}, Options{Uploader: uploader})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	module.Enable()
	lock := &sync.Mutex{}
	return &harness{
		module:   module,
		uploader: uploader,
		output:   output,
		store:    store,
		lock:     lock,
		tasks:    subscriber.NewTaskGroup(context.Background(), lock, nil),
	}
}

func (h *harness) feed(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		record, err := journal.Parse([]byte(line))
		if err != nil {
			t.Fatalf("Parse(%s): %v", line, err)
		}
		h.handle(t, record)
	}
}

func (h *harness) handle(t *testing.T, record journal.Record) {
	t.Helper()
	h.lock.Lock()
	err := h.module.HandleEvent(context.Background(), record, h.tasks)
	h.lock.Unlock()
	if err != nil {
		t.Fatalf("HandleEvent(%s): %v", record.Event, err)
	}
	h.tasks.Wait()
}

func (h *harness) command(t *testing.T, line string) {
	t.Helper()
	h.lock.Lock()
	err := h.module.HandleCommand(context.Background(), strings.Fields(line), h.tasks)
	h.lock.Unlock()
	if err != nil {
		t.Fatalf("HandleCommand(%s): %v", line, err)
	}
	h.tasks.Wait()
}

func TestUploadOnStartJump(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{discard: []string{"Music"}}
	h := newHarness(t, uploader)
	h.feed(t, fileheader, music, location)
	h.handle(t, journal.CaughtUp())
	h.feed(t, music, fsdJump, startJump)

	if len(uploader.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(uploader.batches))
	}
	batch := uploader.batches[0]
	if batch.GameVersion != "4.0.0.1904" || batch.GameBuild != "r308767/r0 " {
		t.Errorf("batch game version = %q %q", batch.GameVersion, batch.GameBuild)
	}
	got := strings.Join(uploader.events(0), ",")
	if want := "Fileheader,Location,FSDJump,StartJump"; got != want {
		t.Errorf("uploaded events = %s, want %s", got, want)
	}
	if h.module.Buffered() != 0 {
		t.Errorf("buffer holds %d events after upload", h.module.Buffered())
	}
	if !strings.Contains(h.output.String(), "sent 4 events to EDSM") {
		t.Errorf("output = %q", h.output.String())
	}
}

func TestReplayedJumpsClearTheBuffer(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{}
	h := newHarness(t, uploader)
	h.feed(t, fileheader, location, startJump, fsdJump)
	if len(uploader.batches) != 0 {
		t.Errorf("replay uploaded %d batches", len(uploader.batches))
	}
	if got := h.module.Buffered(); got != 1 {
		t.Errorf("buffered = %d, want 1 (the FSDJump after the replayed StartJump)", got)
	}
}

func TestFailedUploadIsRequeued(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{errs: []error{errors.New("connection refused")}}
	h := newHarness(t, uploader)
	h.handle(t, journal.CaughtUp())
	h.feed(t, fileheader, location, startJump)

	if got := h.module.Buffered(); got != 3 {
		t.Fatalf("buffered after failure = %d, want 3", got)
	}
	if !strings.Contains(h.output.String(), "connection refused") {
		t.Errorf("failure not reported: %q", h.output.String())
	}

	h.feed(t, fsdJump)
	h.command(t, "edsm send")
	if len(uploader.batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(uploader.batches))
	}
	if got, want := strings.Join(uploader.events(1), ","), "Fileheader,Location,StartJump,FSDJump"; got != want {
		t.Errorf("retried events = %s, want %s", got, want)
	}
}

func TestRejectionDisablesAndDumps(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{responses: []*edsmapi.JournalResponse{{
		MsgNum: edsmapi.CodeOK,
		Events: []edsmapi.EventResult{{MsgNum: 100}, {MsgNum: 203, Msg: "Commander name/API Key not found"}},
	}}}
	h := newHarness(t, uploader)
	h.handle(t, journal.CaughtUp())
	h.feed(t, fileheader, startJump)

	if h.module.Enabled() {
		t.Error("module still enabled after a rejecting code")
	}
	if got := h.module.Buffered(); got != 2 {
		t.Errorf("buffered = %d, want 2", got)
	}
	data, err := os.ReadFile(h.module.dumpPath)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("dump has %d lines, want 2:\n%s", got, data)
	}
	if !strings.Contains(h.output.String(), "code 203") {
		t.Errorf("rejection not reported: %q", h.output.String())
	}
}

func TestWarningsAreReported(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{responses: []*edsmapi.JournalResponse{{
		MsgNum: edsmapi.CodeOK,
		Events: []edsmapi.EventResult{{MsgNum: 100}, {MsgNum: 402, Msg: "Item unknown"}},
	}}}
	h := newHarness(t, uploader)
	h.handle(t, journal.CaughtUp())
	h.feed(t, fileheader, startJump)

	if !h.module.Enabled() {
		t.Error("warning disabled the module")
	}
	if !strings.Contains(h.output.String(), "warning: code 402 on event 1: Item unknown") {
		t.Errorf("output = %q", h.output.String())
	}
}

func TestSendWaitsForHeader(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{}
	h := newHarness(t, uploader)
	h.handle(t, journal.CaughtUp())
	h.feed(t, location)
	h.command(t, "edsm send")
	if len(uploader.batches) != 0 {
		t.Errorf("sent before the journal header")
	}
	if !strings.Contains(h.output.String(), "waiting for the journal header") {
		t.Errorf("output = %q", h.output.String())
	}
}

func TestUploadThroughClient(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var posted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api-journal-v1/discard":
			io.WriteString(w, `["Music","ReceiveText"]`)
		case "/api-journal-v1":
			mu.Lock()
			defer mu.Unlock()
			if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			io.WriteString(w, `{"msgnum":100,"msg":"OK","events":[{"msgnum":100},{"msgnum":100}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := edsmapi.New(edsmapi.Options{
		BaseURL:         server.URL,
		CommanderName:   "Jameson",
		APIKey:          "secret",
		SoftwareVersion: "1.0.0/" + Version,
	})
	h := newHarness(t, client)
	h.handle(t, journal.CaughtUp())
	h.feed(t, fileheader, music, startJump)

	mu.Lock()
	defer mu.Unlock()
	if posted["commanderName"] != "Jameson" || posted["fromSoftware"] != "EDSST" {
		t.Errorf("posted = %v", posted)
	}
	if messages, _ := posted["message"].([]any); len(messages) != 2 {
		t.Errorf("posted %d messages, want 2", len(messages))
	}
}

func TestDiscardListFetchedOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{discard: []string{"Music"}}
	h := newHarness(t, uploader)
	h.module.Disable()
	h.handle(t, journal.CaughtUp())
	if got := uploader.discardFetches(); got != 0 {
		t.Fatalf("disabled module fetched the discard list %d times", got)
	}

	h.command(t, "edsm enable")
	h.command(t, "edsm disable")
	h.command(t, "edsm enable")
	if got := uploader.discardFetches(); got != 1 {
		t.Errorf("discard list fetched %d times, want 1", got)
	}

	h.feed(t, fileheader, music)
	if got := h.module.Buffered(); got != 1 {
		t.Errorf("buffered = %d, want 1 with Music discarded", got)
	}
}
