// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package console is edsst's interactive surface: a ">>> " prompt on a
// terminal, or plain line input when stdin is piped. Subscriber output
// and log lines are written through the [Console] so they do not tear
// the prompt line the user is typing on.
package console
