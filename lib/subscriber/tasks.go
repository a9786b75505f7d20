// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package subscriber

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// TaskGroup runs background work spawned by handlers. Tasks run on the
// session's root context, so an orderly exit lets them finish; Wait
// blocks until every task has returned.
type TaskGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	lock   sync.Locker
	logger *slog.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	running int
	closed  bool
}

// NewTaskGroup returns a TaskGroup whose tasks run on ctx. lock is the
// hub lock that serializes handlers; Exclusive acquires it.
func NewTaskGroup(ctx context.Context, lock sync.Locker, logger *slog.Logger) *TaskGroup {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(ctx)
	group := &TaskGroup{
		ctx:    ctx,
		cancel: cancel,
		lock:   lock,
		logger: logger,
	}
	group.idle = sync.NewCond(&group.mu)
	return group
}

// Go starts fn in a new goroutine and returns immediately, so it is safe
// to call from a handler holding the hub lock. A returned error or a
// panic is logged with the task name; it does not affect other tasks.
// After Close has returned, Go drops fn with a warning.
func (g *TaskGroup) Go(name string, fn func(ctx context.Context) error) {
	g.mu.Lock()
	if g.closed && g.running == 0 {
		g.mu.Unlock()
		g.logger.Warn("task group closed, dropping task", "task", name)
		return
	}
	g.running++
	g.mu.Unlock()

	go func() {
		defer g.done()
		if err := g.run(fn); err != nil {
			g.logger.Error("background task failed", "task", name, "error", err)
		}
	}()
}

func (g *TaskGroup) done() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running--
	if g.running == 0 {
		g.idle.Broadcast()
	}
}

func (g *TaskGroup) run(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v\n%s", recovered, debug.Stack())
		}
	}()
	return fn(g.ctx)
}

// Exclusive runs fn while holding the hub lock. Call it only from task
// bodies; handlers already hold the lock and would deadlock.
func (g *TaskGroup) Exclusive(fn func()) {
	g.lock.Lock()
	defer g.lock.Unlock()
	fn()
}

// Wait blocks until no task is running. Tasks started while Wait blocks,
// including tasks started by other tasks, are waited for too.
func (g *TaskGroup) Wait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.running > 0 {
		g.idle.Wait()
	}
}

// Close waits like Wait and then refuses new tasks. Tasks may still
// start follow-up tasks while the group drains.
func (g *TaskGroup) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for g.running > 0 {
		g.idle.Wait()
	}
}

// Cancel cancels the context passed to tasks.
func (g *TaskGroup) Cancel() {
	g.cancel()
}
