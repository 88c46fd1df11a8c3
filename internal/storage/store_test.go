// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "persona.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// PRESET TESTS
// =============================================================================

func TestStore_PresetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	p := model.DefaultPreset()
	p.AddModule(&model.Module{
		ID:       "style",
		Name:     "Style",
		Role:     model.RoleSystem,
		Content:  "Write tersely.",
		Enabled:  true,
		Order:    50,
		Position: model.AbsolutePosition(1),
		Triggers: model.Triggers{Enabled: true, Text: "dragon, cave"},
	})
	require.NoError(t, s.SavePreset(p))

	got, err := s.LoadPreset(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	require.Len(t, got.Modules, len(p.Modules))
	for i, want := range p.Modules {
		assert.Equal(t, want, got.Modules[i], "module %d", i)
	}
}

func TestStore_SavePresetOverwrites(t *testing.T) {
	s := openTestStore(t)

	p := model.NewPreset("First Name")
	require.NoError(t, s.SavePreset(p))

	p.Name = "Second Name"
	p.Temperature = 1.5
	require.NoError(t, s.SavePreset(p))

	got, err := s.LoadPreset(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second Name", got.Name)
	assert.Equal(t, 1.5, got.Temperature)

	metas, err := s.ListPresets()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestStore_PresetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadPreset("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePreset("missing"), ErrNotFound)
}

func TestStore_DeletePreset(t *testing.T) {
	s := openTestStore(t)

	p := model.NewPreset("Doomed")
	require.NoError(t, s.SavePreset(p))
	require.NoError(t, s.DeletePreset(p.ID))

	_, err := s.LoadPreset(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestStore_ChatRoundTrip(t *testing.T) {
	s := openTestStore(t)

	c := model.NewChat("char_1")
	c.AddUserMessage("hello there")
	c.AddAssistantMessage("well met")
	c.Metadata.Name = "opening scene"
	require.NoError(t, s.SaveChat(c))

	got, err := s.LoadChat(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "opening scene", got.Metadata.Name)
	require.Equal(t, 2, got.MessageCount())
	assert.Equal(t, c.Messages[0].Content, got.Messages[0].Content)
	assert.Equal(t, c.Messages[1].Role, got.Messages[1].Role)
}

func TestStore_ChildrenOf(t *testing.T) {
	s := openTestStore(t)

	parent := model.NewChat("char_1")
	parent.AddUserMessage("root")
	require.NoError(t, s.SaveChat(parent))

	older := model.NewChat("char_1")
	older.ParentChatID = parent.ID
	older.BranchPointIndex = 0
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.SaveChat(older))

	newer := model.NewChat("char_1")
	newer.ParentChatID = parent.ID
	newer.BranchPointIndex = 0
	require.NoError(t, s.SaveChat(newer))

	children, err := s.ChildrenOf(parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, newer.ID, children[0].ID)
	assert.Equal(t, older.ID, children[1].ID)

	none, err := s.ChildrenOf("no-such-chat")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_DeleteChat(t *testing.T) {
	s := openTestStore(t)

	c := model.NewChat("char_1")
	require.NoError(t, s.SaveChat(c))
	require.NoError(t, s.DeleteChat(c.ID))

	_, err := s.LoadChat(c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteChat(c.ID), ErrNotFound)
}

// =============================================================================
// RULE AND COMMAND TESTS
// =============================================================================

func TestStore_RulesPreserveOrder(t *testing.T) {
	s := openTestStore(t)

	rules := []model.RegexRule{
		{Find: "<thinking>.*?</thinking>", Replace: "", Notes: "strip reasoning"},
		{Find: `\s+$`, Replace: ""},
		{Find: "colour", Replace: "color"},
	}
	require.NoError(t, s.SaveRules(rules))

	got, err := s.LoadRules()
	require.NoError(t, err)
	assert.Equal(t, rules, got)

	// Saving replaces, never appends.
	require.NoError(t, s.SaveRules(rules[:1]))
	got, err = s.LoadRules()
	require.NoError(t, err)
	assert.Equal(t, rules[:1], got)
}

func TestStore_CommandsPreserveOrder(t *testing.T) {
	s := openTestStore(t)

	commands := []model.Command{
		{ID: "cmd_1", Notes: "continue", Content: "Continue the scene."},
		{ID: "cmd_2", Content: "Summarise the story so far."},
	}
	require.NoError(t, s.SaveCommands(commands))

	got, err := s.LoadCommands()
	require.NoError(t, err)
	assert.Equal(t, commands, got)

	require.NoError(t, s.SaveCommands(nil))
	got, err = s.LoadCommands()
	require.NoError(t, err)
	assert.Empty(t, got)
}

// =============================================================================
// REOPEN TESTS
// =============================================================================

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.db")

	s, err := Open(path)
	require.NoError(t, err)
	p := model.NewPreset("Persistent")
	require.NoError(t, s.SavePreset(p))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadPreset(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persistent", got.Name)
}
