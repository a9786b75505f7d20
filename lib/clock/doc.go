// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that waits on timers (the tailer's poll ticker, delayed module
// reports) takes a [Clock] instead of calling the time package directly.
// Production wiring passes [Real]; tests pass [Fake] and drive time with
// [FakeClock.Advance]:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go reporter.run(ctx, c)
//	c.WaitForTimers(1)
//	c.Advance(time.Second)
package clock
