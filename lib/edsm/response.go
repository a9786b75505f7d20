// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package edsm

import "fmt"

// Message codes from the journal API documentation.
const (
	CodeOK = 100
)

// JournalResponse is EDSM's answer to a journal upload.
type JournalResponse struct {
	MsgNum int           `json:"msgnum"`
	Msg    string        `json:"msg"`
	Events []EventResult `json:"events"`
}

// EventResult is the per-event status of an upload.
type EventResult struct {
	MsgNum int    `json:"msgnum"`
	Msg    string `json:"msg"`
}

// RejectedError reports a batch or event EDSM refused. Further uploads
// with the same credentials or data will fail the same way.
type RejectedError struct {
	// Index is the rejected event's position, or -1 for the batch.
	Index   int
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("edsm rejected the batch with code %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("edsm rejected event %d with code %d: %s", e.Index, e.Code, e.Message)
}

// rejecting reports codes that mean the upload must stop: bad
// credentials, malformed or refused data.
func rejecting(code int) bool {
	switch code {
	case 201, 202, 203, 204, 205, 206, 207, 208, 301, 302, 303, 304:
		return true
	}
	return false
}

// accepted reports codes for events EDSM stored or knowingly skipped.
func accepted(code int) bool {
	return code >= 100 && code <= 104
}

// Check returns a *RejectedError when the batch or any event was
// refused.
func (r *JournalResponse) Check() error {
	if r.MsgNum != CodeOK {
		return &RejectedError{Index: -1, Code: r.MsgNum, Message: r.Msg}
	}
	for i, event := range r.Events {
		if rejecting(event.MsgNum) {
			return &RejectedError{Index: i, Code: event.MsgNum, Message: event.Msg}
		}
	}
	return nil
}

// Warnings returns the events with codes that are neither accepted nor
// rejecting, keyed by their index in the batch.
func (r *JournalResponse) Warnings() map[int]EventResult {
	warnings := make(map[int]EventResult)
	for i, event := range r.Events {
		if !accepted(event.MsgNum) && !rejecting(event.MsgNum) {
			warnings[i] = event
		}
	}
	return warnings
}
