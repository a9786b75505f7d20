// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend] and [RequireClosed] wrap the
// select-with-timeout pattern so tests never hang on a channel. They are
// the only place tests use real wall-clock timeouts.
//
// [AppendLines] writes journal lines the way the game does: appended,
// newline-terminated, with the file closed after each write.
//
// All helpers call t.Fatalf on failure.
package testutil
