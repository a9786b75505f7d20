// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellar-survey/edsst/lib/journal"
)

// RecordSource produces the record stream. It must close records when
// it returns. *journal.Tailer implements it.
type RecordSource interface {
	Run(ctx context.Context, records chan<- journal.Record) error
}

// Run runs a session: source feeds the dispatcher while input feeds the
// router. It ends on "exit", end of input, ctx cancellation, or a
// source error, then shuts down in order: save every subscriber's
// state, wait for background tasks, stop ingestion, and wait for the
// consumer to drain. Tasks started by records dispatched during the
// shutdown are awaited before a final save. Run returns nil on a clean
// exit and the source's error when the source failed.
func (h *Hub) Run(ctx context.Context, source RecordSource, input LineReader) error {
	ingestCtx, cancelIngest := context.WithCancel(ctx)
	defer cancelIngest()

	records := make(chan journal.Record, 64)
	sourceDone := make(chan error, 1)
	go func() { sourceDone <- source.Run(ingestCtx, records) }()

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		h.Consume(ingestCtx, records)
	}()

	// The reader may stay blocked in ReadLine after Run returns; the
	// console cannot be interrupted portably.
	inputDone := make(chan error, 1)
	go func() { inputDone <- h.ReadCommands(ctx, input) }()

	var result error
	sourceFinished := false
	pendingSource := sourceDone
wait:
	for {
		select {
		case err := <-inputDone:
			switch {
			case err == nil:
				h.logger.Info("console input ended, shutting down")
			case errors.Is(err, ErrExit):
				h.logger.Info("exit requested, shutting down")
			case errors.Is(err, context.Canceled):
			default:
				h.logger.Warn("reading console input", "error", err)
			}
			break wait
		case <-ctx.Done():
			h.logger.Info("session cancelled, shutting down")
			break wait
		case err := <-pendingSource:
			sourceFinished = true
			if err != nil && ctx.Err() == nil {
				result = fmt.Errorf("journal source: %w", err)
				h.logger.Error("journal source failed", "error", err)
				break wait
			}
			// A source that ends cleanly leaves the console running.
			pendingSource = nil
		}
	}

	h.saveAll()
	h.tasks.Wait()
	cancelIngest()
	<-consumerDone
	if !sourceFinished {
		<-sourceDone
	}
	// Records dispatched while the first wait ran may have started
	// tasks, and tasks may have changed state after the first save.
	h.tasks.Close()
	h.saveAll()
	return result
}
