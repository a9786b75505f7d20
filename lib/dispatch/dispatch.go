// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"

	"github.com/stellar-survey/edsst/lib/journal"
)

// Dispatch delivers record to every subscriber in registration order
// and returns the failed invocations. A subscriber is skipped only when
// it is disabled and caught up: disabled subscribers still see history
// so they reach the CaughtUp record.
func (h *Hub) Dispatch(ctx context.Context, record journal.Record) []Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	var failures []Outcome
	for _, target := range h.subscribers {
		if !target.Enabled() && target.CaughtUp() {
			continue
		}
		err := invoke(func() error {
			return target.HandleEvent(ctx, record, h.tasks)
		})
		if err != nil {
			failures = append(failures, h.fail(target, err, "event", record.Event))
		}
	}
	return failures
}

// Consume dispatches records until the channel closes or ctx ends.
func (h *Hub) Consume(ctx context.Context, records <-chan journal.Record) {
	for {
		select {
		case <-ctx.Done():
			return
		case record, ok := <-records:
			if !ok {
				return
			}
			h.Dispatch(ctx, record)
		}
	}
}
