// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/seleane/persona/internal/model"
	"github.com/seleane/persona/internal/util"
)

// =============================================================================
// SNAPSHOT TYPE
// =============================================================================

// SnapshotVersion is the current snapshot schema version.
const SnapshotVersion = 1

// ErrSnapshotVersion is returned when a snapshot's version is not supported.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// Snapshot is the full exportable state of the store. It is the only thing
// the external backup component sees: the engine knows nothing of the
// transport, rotation policy or authentication used to store it remotely.
type Snapshot struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`

	Presets  []*model.Preset   `json:"presets"`
	Chats    []*model.Chat     `json:"chats"`
	Rules    []model.RegexRule `json:"rules"`
	Commands []model.Command   `json:"commands"`
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// ExportSnapshot produces a full snapshot of the store contents.
func (s *Store) ExportSnapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now(),
	}

	metas, err := s.ListPresets()
	if err != nil {
		return nil, err
	}
	for _, meta := range metas {
		p, err := s.LoadPreset(meta.ID)
		if err != nil {
			continue
		}
		snap.Presets = append(snap.Presets, p)
	}

	if snap.Chats, err = s.ListChats(); err != nil {
		return nil, err
	}
	if snap.Rules, err = s.LoadRules(); err != nil {
		return nil, err
	}
	if snap.Commands, err = s.LoadCommands(); err != nil {
		return nil, err
	}

	return snap, nil
}

// ImportSnapshot replaces all local state with the snapshot contents. The
// replacement runs in one transaction-equivalent pass: existing rows are
// cleared first, and any failure leaves the caller to retry with the same
// snapshot rather than resuming partial work.
func (s *Store) ImportSnapshot(snap *Snapshot) error {
	if snap == nil {
		return errors.New("snapshot is nil")
	}
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}

	for _, table := range []string{"presets", "chats", "regex_rules", "commands"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	for _, p := range snap.Presets {
		if err := s.SavePreset(p); err != nil {
			return err
		}
	}
	for _, c := range snap.Chats {
		if err := s.SaveChat(c); err != nil {
			return err
		}
	}
	if err := s.SaveRules(snap.Rules); err != nil {
		return err
	}
	return s.SaveCommands(snap.Commands)
}

// =============================================================================
// FILE HELPERS
// =============================================================================

// WriteSnapshotFile serializes a snapshot to path with an atomic write.
func WriteSnapshotFile(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, data, 0644)
}

// ReadSnapshotFile loads a snapshot from path.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
