// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal turns the game's journal directory into an ordered
// stream of [Record] values.
//
// The game writes one JSON object per line to Journal.<timestamp>.<part>.log
// and starts a new file on every launch (and occasionally mid-session).
// [Locator] picks the current file by filename order. [Tailer] replays
// that file, emits a single synthetic CaughtUp record, then follows new
// lines as the [Watcher] reports directory changes:
//
//	Locating → Replaying → CaughtUp → Live ⇄ Rotating
//	                                  Live → WaitingForProducer → Live
//
// Everything before the CaughtUp record is history; everything after it
// happened while edsst was watching. Consumers key their side effects
// off that boundary.
//
// The tailer never persists its position. After a restart it replays the
// current file from the top again.
package journal
