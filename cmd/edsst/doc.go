// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// edsst tails the Elite Dangerous journal and dispatches each event to a
// fixed set of modules: core position tracking, EDSM upload, the FSS
// scan report, boxel surveys, and the local chat relay. Console lines
// are routed to modules by their first word.
//
// Configuration comes from the file named by --config or EDSST_CONFIG
// (YAML, or JSON with comments for .json and .jsonc), with secrets
// overridable through EDSST_COMMANDER_NAME and EDSST_EDSM_API_KEY.
// Module state lives under paths.data, one directory per module.
package main
