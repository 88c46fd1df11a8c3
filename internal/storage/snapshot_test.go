// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seleane/persona/internal/model"
)

func seedStore(t *testing.T, s *Store) {
	t.Helper()

	require.NoError(t, s.SavePreset(model.DefaultPreset()))

	chat := model.NewChat("char_1")
	chat.AddUserMessage("hello")
	chat.AddAssistantMessage("hi")
	require.NoError(t, s.SaveChat(chat))

	require.NoError(t, s.SaveRules([]model.RegexRule{
		{Find: "<thinking>.*?</thinking>", Replace: ""},
	}))
	require.NoError(t, s.SaveCommands([]model.Command{
		{ID: "cmd_1", Content: "Continue the scene."},
	}))
}

func TestSnapshot_ExportImport(t *testing.T) {
	src := openTestStore(t)
	seedStore(t, src)

	snap, err := src.ExportSnapshot()
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.False(t, snap.ExportedAt.IsZero())
	assert.Len(t, snap.Presets, 1)
	assert.Len(t, snap.Chats, 1)
	assert.Len(t, snap.Rules, 1)
	assert.Len(t, snap.Commands, 1)

	// Importing into a store with different contents replaces them wholesale.
	dst := openTestStore(t)
	require.NoError(t, dst.SavePreset(model.NewPreset("Stale")))
	require.NoError(t, dst.SaveRules([]model.RegexRule{{Find: "stale", Replace: ""}}))

	require.NoError(t, dst.ImportSnapshot(snap))

	metas, err := dst.ListPresets()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, model.DefaultPresetID, metas[0].ID)

	rules, err := dst.LoadRules()
	require.NoError(t, err)
	assert.Equal(t, snap.Rules, rules)

	chats, err := dst.ListChats()
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, snap.Chats[0].ID, chats[0].ID)
}

func TestSnapshot_RejectsUnknownVersion(t *testing.T) {
	s := openTestStore(t)

	err := s.ImportSnapshot(&Snapshot{Version: 99})
	assert.ErrorIs(t, err, ErrSnapshotVersion)

	assert.Error(t, s.ImportSnapshot(nil))
}

func TestSnapshot_FileRoundTrip(t *testing.T) {
	src := openTestStore(t)
	seedStore(t, src)

	snap, err := src.ExportSnapshot()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, WriteSnapshotFile(path, snap))

	got, err := ReadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, got.Version)
	assert.Len(t, got.Presets, len(snap.Presets))
	assert.Equal(t, snap.Rules, got.Rules)
	assert.Equal(t, snap.Commands, got.Commands)
}

func TestReadSnapshotFile_Missing(t *testing.T) {
	_, err := ReadSnapshotFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
