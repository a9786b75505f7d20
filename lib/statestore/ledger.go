// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// LedgerEntry is one row of the version ledger.
type LedgerEntry struct {
	ModuleName string `json:"module_name"`
	Version    string `json:"version"`
}

// Registration describes how a subscriber's version compares with the
// one recorded by its previous run.
type Registration struct {
	// FirstBoot is true when the ledger had no entry for the subscriber.
	FirstBoot bool

	// VersionChanged is true when the ledger recorded a different
	// version. PreviousVersion holds it.
	VersionChanged  bool
	PreviousVersion string
}

// Ledger is the JSON file recording the version each subscriber last
// ran with. Safe for concurrent use within one process.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Entries returns the ledger rows in file order. A missing ledger is
// empty.
func (l *Ledger) Entries() ([]LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked()
}

// Register records version for name and reports what the previous run
// recorded. The file is rewritten only when something changed.
func (l *Ledger) Register(name, version string) (Registration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readLocked()
	if err != nil {
		return Registration{}, err
	}

	for i, entry := range entries {
		if entry.ModuleName != name {
			continue
		}
		if entry.Version == version {
			return Registration{}, nil
		}
		entries[i].Version = version
		if err := l.writeLocked(entries); err != nil {
			return Registration{}, err
		}
		return Registration{VersionChanged: true, PreviousVersion: entry.Version}, nil
	}

	entries = append(entries, LedgerEntry{ModuleName: name, Version: version})
	if err := l.writeLocked(entries); err != nil {
		return Registration{}, err
	}
	return Registration{FirstBoot: true}, nil
}

func (l *Ledger) readLocked() ([]LedgerEntry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading version ledger: %w", err)
	}
	var entries []LedgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing version ledger %s: %w", l.path, err)
	}
	return entries, nil
}

func (l *Ledger) writeLocked(entries []LedgerEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling version ledger: %w", err)
	}
	data = append(data, '\n')
	if err := WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing version ledger: %w", err)
	}
	return nil
}
