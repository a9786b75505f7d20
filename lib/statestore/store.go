// Copyright 2026 The EDSST Authors
// SPDX-License-Identifier: Apache-2.0

package statestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/stellar-survey/edsst/lib/codec"
	"github.com/zeebo/blake3"
)

// Envelope is the on-disk form of one subscriber's state.
type Envelope struct {
	// Version is the subscriber code version that wrote the state.
	Version string `cbor:"version"`

	// Enabled is the subscriber's enabled flag.
	Enabled bool `cbor:"enabled"`

	// Data is the subscriber's own state, CBOR-encoded.
	Data codec.RawMessage `cbor:"data,omitempty"`
}

// LedgerFilename is the name of the version ledger under the store root.
const LedgerFilename = "module_versions.json"

// zstd encoder and decoder are safe for concurrent use and reused
// across calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("statestore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("statestore: zstd decoder initialization failed: " + err.Error())
	}
}

// Store reads and writes subscriber state files under one root
// directory. Safe for concurrent use.
type Store struct {
	root   string
	ledger *Ledger

	mu      sync.Mutex
	digests map[string][32]byte
}

// Open returns a Store rooted at root, creating the directory if needed.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Store{
		root:    root,
		ledger:  &Ledger{path: filepath.Join(root, LedgerFilename)},
		digests: make(map[string][32]byte),
	}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Ledger returns the version ledger shared by all subscribers.
func (s *Store) Ledger() *Ledger {
	return s.ledger
}

// Directory returns the data directory for a subscriber, which also
// holds any files the subscriber writes besides its state.
func (s *Store) Directory(name string) string {
	return filepath.Join(s.root, strings.ToLower(name))
}

// Path returns the state file path for a subscriber.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Directory(name), strings.ToLower(name)+"_state")
}

// Load reads a subscriber's envelope. When no state has been saved the
// error wraps os.ErrNotExist.
func (s *Store) Load(name string) (Envelope, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return Envelope{}, err
	}

	var envelope Envelope
	if err := codec.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decoding state for %s: %w", name, err)
	}

	s.mu.Lock()
	s.digests[name] = blake3.Sum256(data)
	s.mu.Unlock()
	return envelope, nil
}

// Save writes a subscriber's envelope. It reports whether the file was
// written; an envelope identical to the last one loaded or saved is
// skipped.
func (s *Store) Save(name string, envelope Envelope) (bool, error) {
	data, err := codec.Marshal(envelope)
	if err != nil {
		return false, fmt.Errorf("encoding state for %s: %w", name, err)
	}
	digest := blake3.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.digests[name]; ok && previous == digest {
		return false, nil
	}

	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating state directory for %s: %w", name, err)
	}
	if err := WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("saving state for %s: %w", name, err)
	}
	s.digests[name] = digest
	return true, nil
}

// Archive moves a subscriber's state file aside as a zstd-compressed
// copy tagged with version, returning the archive path. It returns ""
// and no error when there is no state to archive.
func (s *Store) Archive(name, version string) (string, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading state for %s: %w", name, err)
	}

	if version == "" {
		version = "unknown"
	}
	archivePath := fmt.Sprintf("%s.%s.zst", path, version)
	if err := WriteFile(archivePath, zstdEncoder.EncodeAll(data, nil), 0o644); err != nil {
		return "", fmt.Errorf("archiving state for %s: %w", name, err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("removing archived state for %s: %w", name, err)
	}

	s.mu.Lock()
	delete(s.digests, name)
	s.mu.Unlock()
	return archivePath, nil
}

// ReadArchive decompresses an archive written by Archive.
func ReadArchive(path string) ([]byte, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress %s: %w", filepath.Base(path), err)
	}
	return data, nil
}
