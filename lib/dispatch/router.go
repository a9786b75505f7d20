// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
)

// ErrExit is returned by Route and ReadCommands when the user typed
// "exit".
var ErrExit = errors.New("exit requested")

// ExitCommand ends the session.
const ExitCommand = "exit"

// LineReader is the console input.
type LineReader interface {
	ReadLine() (string, error)
}

// Tokenize lowercases line and splits it on whitespace.
func Tokenize(line string) []string {
	return strings.Fields(strings.ToLower(line))
}

// Route delivers a console line to every subscriber that has its first
// token as an alias. It returns ErrExit for "exit". Blank lines and
// unknown first tokens are ignored.
func (h *Hub) Route(ctx context.Context, line string) error {
	args := Tokenize(line)
	if len(args) == 0 {
		return nil
	}
	if args[0] == ExitCommand {
		return ErrExit
	}
	h.route(ctx, args)
	return nil
}

// Submit routes a line on behalf of a subscriber, such as text relayed
// from the in-game chat. "exit" is never honoured. Call it from a task,
// not from a handler.
func (h *Hub) Submit(ctx context.Context, line string) []Outcome {
	args := Tokenize(line)
	if len(args) == 0 {
		return nil
	}
	if args[0] == ExitCommand {
		h.logger.Warn("ignoring relayed exit command")
		return nil
	}
	return h.route(ctx, args)
}

func (h *Hub) route(ctx context.Context, args []string) []Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	var failures []Outcome
	matched := false
	for _, target := range h.subscribers {
		if !slices.Contains(target.Aliases(), args[0]) {
			continue
		}
		matched = true
		err := invoke(func() error {
			return target.HandleCommand(ctx, args, h.tasks)
		})
		if err != nil {
			failures = append(failures, h.fail(target, err, "command", strings.Join(args, " ")))
		}
	}
	if !matched {
		h.logger.Debug("no subscriber for command", "command", args[0])
	}
	return failures
}

// ReadCommands routes lines from input until "exit" (ErrExit), end of
// input (nil), a read error, or ctx ending.
func (h *Hub) ReadCommands(ctx context.Context, input LineReader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := input.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := h.Route(ctx, line); err != nil {
			return err
		}
	}
}
