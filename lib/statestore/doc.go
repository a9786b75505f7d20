// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package statestore persists subscriber state between runs.
//
// Each subscriber owns one file, <root>/<name>/<name>_state with the
// name lowercased, holding a CBOR [Envelope]: the code version that
// wrote it, the enabled flag, and the subscriber's own data. Files are
// replaced atomically (temporary file, fsync, rename, directory fsync)
// so a crash never leaves a torn state file behind. Writes whose
// encoded bytes match the last write are skipped, which keeps per-event
// SaveState calls cheap.
//
// A shared [Ledger] at <root>/module_versions.json records the version
// each subscriber last ran with. When the running version differs,
// the old state is compressed into an archive next to the live file
// rather than migrated.
package statestore
