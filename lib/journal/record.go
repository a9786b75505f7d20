// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// CaughtUpEvent is the discriminant of the synthetic record that
	// separates replayed history from live events. The game never
	// writes it.
	CaughtUpEvent = "CaughtUp"

	// ShutdownEvent is the last record the game writes to a journal
	// file when it exits cleanly.
	ShutdownEvent = "Shutdown"
)

var (
	// ErrEmptyLine is returned by Parse for blank lines.
	ErrEmptyLine = errors.New("empty journal line")

	// ErrNoEvent is returned by Parse for JSON objects without a string
	// "event" field.
	ErrNoEvent = errors.New("journal line has no event field")
)

// Record is one decoded journal line. Field accessors decode lazily from
// the raw line; a missing or mistyped field yields the zero value.
type Record struct {
	// Event is the discriminant ("FSDJump", "Scan", ...).
	Event string

	// Timestamp is the game's ISO 8601 timestamp, empty for synthetic
	// records.
	Timestamp string

	raw    []byte
	fields map[string]json.RawMessage
}

// Parse decodes a single journal line. Leading and trailing whitespace,
// including the game's \r, is ignored.
func Parse(line []byte) (Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Record{}, ErrEmptyLine
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Record{}, fmt.Errorf("decoding journal line: %w", err)
	}

	record := Record{
		raw:    bytes.Clone(line),
		fields: fields,
	}
	record.Event = record.String("event")
	if record.Event == "" {
		return Record{}, ErrNoEvent
	}
	record.Timestamp = record.String("timestamp")
	return record, nil
}

// CaughtUp returns the synthetic replay/live boundary record.
func CaughtUp() Record {
	return Record{
		Event:  CaughtUpEvent,
		raw:    []byte(`{"event":"CaughtUp"}`),
		fields: map[string]json.RawMessage{"event": json.RawMessage(`"CaughtUp"`)},
	}
}

// Synthetic reports whether the record was produced by edsst rather than
// read from a journal file.
func (r Record) Synthetic() bool {
	return r.Event == CaughtUpEvent
}

// Raw returns the line as written by the game, without surrounding
// whitespace. The caller must not modify it.
func (r Record) Raw() []byte {
	return r.raw
}

// Has reports whether the record carries key, even if its value is null.
func (r Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// String returns the string value of key, or "" when absent or not a
// string.
func (r Record) String(key string) string {
	var value string
	if r.Field(key, &value) != nil {
		return ""
	}
	return value
}

// Int returns the integer value of key.
func (r Record) Int(key string) (int64, bool) {
	var value int64
	if r.Field(key, &value) != nil {
		return 0, false
	}
	return value, true
}

// Float returns the numeric value of key.
func (r Record) Float(key string) (float64, bool) {
	var value float64
	if r.Field(key, &value) != nil {
		return 0, false
	}
	return value, true
}

// Bool returns the boolean value of key.
func (r Record) Bool(key string) (bool, bool) {
	var value bool
	if r.Field(key, &value) != nil {
		return false, false
	}
	return value, true
}

// Field decodes the value of key into v.
func (r Record) Field(key string, v any) error {
	raw, ok := r.fields[key]
	if !ok {
		return fmt.Errorf("journal field %q not present in %s event", key, r.Event)
	}
	return json.Unmarshal(raw, v)
}

// Decode decodes the whole record into v, typically a struct mirroring
// one event type.
func (r Record) Decode(v any) error {
	return json.Unmarshal(r.raw, v)
}

// Map decodes the whole record into a generic map.
func (r Record) Map() (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(r.raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
