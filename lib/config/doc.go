// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for edsst.
//
// Configuration comes from a single file named by the --config flag
// (via [LoadFile]) or the EDSST_CONFIG environment variable (via
// [Load]). YAML files are decoded directly; files ending in .json or
// .jsonc may carry comments and trailing commas, which are stripped
// before decoding.
//
// Path fields support ${HOME} and ${VAR:-default} expansion. The only
// environment variables that override file values are the two secrets,
// EDSST_COMMANDER_NAME and EDSST_EDSM_API_KEY, so they can stay out of
// the file.
//
// Key exports:
//
//   - [Config] -- master struct
//   - [Default] -- the built-in defaults every file is merged onto
//   - [Load] and [LoadFile] -- the two entry points
package config
