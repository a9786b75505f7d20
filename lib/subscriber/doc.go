// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package subscriber defines the contract between the dispatch hub and
// the modules that consume journal records and console commands.
//
// A module embeds [Base], which supplies the bookkeeping every module
// shares: the alias set used for command routing, the enabled and
// caught-up flags, versioned persisted state, and output that stays
// silent while history is being replayed. The module adds its own
// HandleEvent and HandleCommand and calls the Base versions first.
//
// Handlers run one at a time under the hub lock. Work that must not
// block ingestion (network calls, delays) goes through the
// [TaskGroup], whose tasks reacquire the hub lock with
// [TaskGroup.Exclusive] before touching module state.
package subscriber
