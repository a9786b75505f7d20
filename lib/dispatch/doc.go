// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch connects the journal stream and the console to the
// registered subscribers.
//
// A [Hub] owns the subscriber list and one mutex. Records are fanned out
// in registration order and console commands are routed by alias, both
// under that mutex, so subscribers never see concurrent calls. Every
// call is a fault boundary: an error or panic disables the offending
// subscriber and the hub carries on with the rest.
//
// [Hub.Run] is the whole session: tailer, consumer and console reader
// run concurrently until "exit", end of input, cancellation, or a fatal
// tailer error, followed by an orderly shutdown that saves every
// subscriber's state and waits for background tasks.
package dispatch
