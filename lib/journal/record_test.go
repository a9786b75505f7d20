// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	line := []byte(`{"timestamp":"2026-10-19T12:00:00Z","event":"Scan","BodyName":"Sol 3","BodyID":3,"DistanceFromArrivalLS":499.0,"WasDiscovered":true}` + "\r\n")
	record, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if record.Event != "Scan" {
		t.Errorf("Event = %q, want Scan", record.Event)
	}
	if record.Timestamp != "2026-10-19T12:00:00Z" {
		t.Errorf("Timestamp = %q", record.Timestamp)
	}
	if got := record.String("BodyName"); got != "Sol 3" {
		t.Errorf("String(BodyName) = %q", got)
	}
	if got, ok := record.Int("BodyID"); !ok || got != 3 {
		t.Errorf("Int(BodyID) = %d, %v", got, ok)
	}
	if got, ok := record.Float("DistanceFromArrivalLS"); !ok || got != 499 {
		t.Errorf("Float(DistanceFromArrivalLS) = %v, %v", got, ok)
	}
	if got, ok := record.Bool("WasDiscovered"); !ok || !got {
		t.Errorf("Bool(WasDiscovered) = %v, %v", got, ok)
	}
	if record.Has("Missing") {
		t.Error("Has(Missing) = true")
	}
	if got := record.String("BodyID"); got != "" {
		t.Errorf("String on a number = %q, want empty", got)
	}
	if record.Raw()[len(record.Raw())-1] != '}' {
		t.Errorf("Raw() kept trailing whitespace: %q", record.Raw())
	}
	if record.Synthetic() {
		t.Error("game record reported as synthetic")
	}

	var scan struct {
		BodyName string
		BodyID   int
	}
	if err := record.Decode(&scan); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if scan.BodyName != "Sol 3" || scan.BodyID != 3 {
		t.Errorf("Decode = %+v", scan)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", ErrEmptyLine},
		{"whitespace", " \r", ErrEmptyLine},
		{"no event", `{"timestamp":"x"}`, ErrNoEvent},
		{"non-string event", `{"event":5}`, ErrNoEvent},
		{"garbage", `{"event":"Scan"`, nil},
		{"array", `["event"]`, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.line))
			if err == nil {
				t.Fatalf("Parse(%q) succeeded", test.line)
			}
			if test.want != nil && !errors.Is(err, test.want) {
				t.Errorf("Parse(%q) = %v, want %v", test.line, err, test.want)
			}
		})
	}
}

func TestCaughtUp(t *testing.T) {
	t.Parallel()

	marker := CaughtUp()
	if marker.Event != CaughtUpEvent || !marker.Synthetic() {
		t.Fatalf("CaughtUp() = %+v", marker)
	}
	if string(marker.Raw()) != `{"event":"CaughtUp"}` {
		t.Errorf("Raw() = %s", marker.Raw())
	}
	reparsed, err := Parse(marker.Raw())
	if err != nil || reparsed.Event != CaughtUpEvent {
		t.Errorf("raw marker does not round-trip: %v %+v", err, reparsed)
	}
}
