// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/stellar-survey/edsst/lib/subscriber"
)

// Outcome reports a failed subscriber invocation.
type Outcome struct {
	Subscriber string
	Err        error
}

// PanicError wraps a value recovered from a panicking subscriber.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Hub owns the registered subscribers and serializes every call into
// them.
type Hub struct {
	mu          sync.Mutex
	subscribers []subscriber.Subscriber
	tasks       *subscriber.TaskGroup
	logger      *slog.Logger
}

// NewHub returns an empty Hub. Background tasks spawned by subscribers
// run on ctx.
func NewHub(ctx context.Context, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	hub := &Hub{logger: logger}
	hub.tasks = subscriber.NewTaskGroup(ctx, &hub.mu, logger)
	return hub
}

// Register appends subscribers in order. Names must be unique.
func (h *Hub) Register(subscribers ...subscriber.Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, candidate := range subscribers {
		if slices.ContainsFunc(h.subscribers, func(existing subscriber.Subscriber) bool {
			return existing.Name() == candidate.Name()
		}) {
			return fmt.Errorf("subscriber %q registered twice", candidate.Name())
		}
		h.subscribers = append(h.subscribers, candidate)
	}
	return nil
}

// Subscribers returns the registered subscribers in order.
func (h *Hub) Subscribers() []subscriber.Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.subscribers)
}

// Tasks returns the group that runs subscriber background work.
func (h *Hub) Tasks() *subscriber.TaskGroup {
	return h.tasks
}

// invoke runs fn, converting a panic into a *PanicError.
func invoke(fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &PanicError{Value: recovered, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// fail logs a failed invocation and disables the subscriber. Called
// with h.mu held.
func (h *Hub) fail(target subscriber.Subscriber, err error, attrs ...any) Outcome {
	attrs = append(attrs, "subscriber", target.Name(), "error", err)
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		attrs = append(attrs, "stack", string(panicErr.Stack))
	}
	h.logger.Error("subscriber failed, disabling it", attrs...)

	if disableErr := invoke(func() error { target.Disable(); return nil }); disableErr != nil {
		h.logger.Error("disabling subscriber", "subscriber", target.Name(), "error", disableErr)
	}
	return Outcome{Subscriber: target.Name(), Err: err}
}

// saveAll saves every subscriber's state, logging failures.
func (h *Hub) saveAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, target := range h.subscribers {
		if err := invoke(target.SaveState); err != nil {
			h.logger.Error("saving subscriber state", "subscriber", target.Name(), "error", err)
		}
	}
}
