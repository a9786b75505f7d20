// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package subscriber

import (
	"context"

	"github.com/stellar-survey/edsst/lib/journal"
)

// Subscriber is a module registered with the dispatch hub.
type Subscriber interface {
	// Name is the stable module name, used for the state file and logs.
	Name() string

	// Aliases are the lowercase first tokens that route console
	// commands to this module. The lowercased name is always included.
	Aliases() []string

	Enabled() bool
	CaughtUp() bool
	Enable()
	Disable()

	LoadState() error
	SaveState() error

	// HandleEvent consumes one record. Records before the CaughtUp
	// record are history: handlers update state but must not print,
	// touch the clipboard, or call the network.
	HandleEvent(ctx context.Context, record journal.Record, tasks *TaskGroup) error

	// HandleCommand consumes a tokenized console line whose first token
	// is one of Aliases.
	HandleCommand(ctx context.Context, args []string, tasks *TaskGroup) error
}
