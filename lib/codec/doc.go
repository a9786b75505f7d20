// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used for on-disk module
// state.
//
// JSON is reserved for interfaces a person or another program reads:
// the game journal, the EDSM API, the module version ledger. Module
// state files are CBOR. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2), so identical state always produces identical bytes;
// the state store relies on this to skip rewriting unchanged state.
//
// Struct tags follow one rule: `cbor` tags for types that only ever
// live in state files, `json` tags for types that are also sent over
// JSON (fxamacker/cbor falls back to `json` tags). Never both on one
// field.
package codec
