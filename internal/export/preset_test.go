// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// NATIVE ROUND-TRIP TESTS
// =============================================================================

func TestExportImport_RoundTrip(t *testing.T) {
	src := model.DefaultPreset()
	src.Name = "Round Trip"
	src.Temperature = 1.1
	src.MaxTokens = 512
	src.ContextLength = 4096
	src.AddModule(&model.Module{
		ID:       "jailbroken-narrator",
		Name:     "Narrator",
		Role:     model.RoleSystem,
		Content:  "Narrate in third person.",
		Enabled:  true,
		Order:    50,
		Position: model.AbsolutePosition(2),
		Triggers: model.Triggers{Enabled: true, Text: "forest, cave"},
	})

	data, err := ExportPreset(src)
	require.NoError(t, err)

	got, err := ImportPreset(data)
	require.NoError(t, err)

	// A fresh id is assigned on import; everything else survives exactly.
	assert.NotEqual(t, src.ID, got.ID)
	assert.Equal(t, src.Name, got.Name)
	assert.Equal(t, src.Temperature, got.Temperature)
	assert.Equal(t, src.MaxTokens, got.MaxTokens)
	assert.Equal(t, src.ContextLength, got.ContextLength)

	require.Len(t, got.Modules, len(src.Modules))
	for i, want := range src.Modules {
		assert.Equal(t, want, got.Modules[i], "module %d", i)
	}
}

func TestExportImport_RoundTripEmptyPreset(t *testing.T) {
	src := model.NewPreset("empty")

	data, err := ExportPreset(src)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"modules": []`)

	got, err := ImportPreset(data)
	require.NoError(t, err)
	assert.Equal(t, "empty", got.Name)
	assert.Empty(t, got.Modules)
}

func TestImportPreset_NativeDefaultsName(t *testing.T) {
	p, err := ImportPreset([]byte(`{"modules": []}`))
	require.NoError(t, err)
	assert.Equal(t, "Imported Preset", p.Name)
}

// =============================================================================
// FOREIGN IMPORT TESTS
// =============================================================================

const foreignDoc = `{
  "temperature": 0.7,
  "openai_max_tokens": 300,
  "openai_max_context": 8000,
  "prompts": [
    {"identifier": "main", "name": "Main Prompt", "marker": true},
    {"identifier": "chatHistory", "name": "Chat History", "marker": true},
    {
      "identifier": "style-guide",
      "name": "Style Guide",
      "role": "system",
      "content": "Short paragraphs only."
    },
    {
      "identifier": "depth-note",
      "name": "Depth Note",
      "role": "user",
      "content": "Stay in character.",
      "injection_position": 1,
      "injection_depth": 3
    }
  ],
  "prompt_order": [
    {"character_id": 100001, "order": [
      {"identifier": "main", "enabled": true},
      {"identifier": "style-guide", "enabled": true},
      {"identifier": "chatHistory", "enabled": true},
      {"identifier": "depth-note", "enabled": false}
    ]}
  ]
}`

func TestImportPreset_Foreign(t *testing.T) {
	p, err := ImportPreset([]byte(foreignDoc))
	require.NoError(t, err)

	assert.Equal(t, 0.7, p.Temperature)
	assert.Equal(t, 300, p.MaxTokens)
	assert.Equal(t, 8000, p.ContextLength)

	require.Len(t, p.Modules, 4)

	main := p.Modules[0]
	assert.Equal(t, model.SlotMainPrompt, main.ID)
	assert.True(t, main.ReadOnly)
	assert.True(t, main.Locked)
	assert.True(t, main.Enabled)

	style := p.Modules[1]
	assert.Equal(t, "style-guide", style.ID)
	assert.Equal(t, model.RoleSystem, style.Role)
	assert.Equal(t, "Short paragraphs only.", style.Content)
	assert.False(t, style.Position.IsAbsolute())

	history := p.Modules[2]
	assert.Equal(t, model.SlotChatHistory, history.ID)
	assert.True(t, history.IsAnchor())

	depth := p.Modules[3]
	assert.False(t, depth.Enabled)
	assert.Equal(t, model.RoleUser, depth.Role)
	require.True(t, depth.Position.IsAbsolute())
	d, ok := depth.Position.Depth()
	require.True(t, ok)
	assert.Equal(t, 3, d)

	// Collection order follows the ordering list, spaced for later inserts.
	for i, m := range p.Modules {
		assert.Equal(t, (i+1)*10, m.Order, "module %d order", i)
	}
}

func TestImportPreset_ForeignWithoutOrdering(t *testing.T) {
	doc := `{
	  "prompts": [
	    {"identifier": "b-entry", "name": "B", "content": "b"},
	    {"identifier": "a-entry", "name": "A", "content": "a"}
	  ]
	}`

	p, err := ImportPreset([]byte(doc))
	require.NoError(t, err)

	// No ordering list: entry order stands, everything enabled.
	require.Len(t, p.Modules, 2)
	assert.Equal(t, "b-entry", p.Modules[0].ID)
	assert.Equal(t, "a-entry", p.Modules[1].ID)
	assert.True(t, p.Modules[0].Enabled)
	assert.True(t, p.Modules[1].Enabled)
}

// =============================================================================
// REJECTION TESTS
// =============================================================================

func TestImportPreset_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"empty object", "{}"},
		{"wrong shape", `{"foo": "bar"}`},
		{"empty prompts", `{"prompts": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportPreset([]byte(tt.data))
			assert.ErrorIs(t, err, ErrUnrecognizedFormat)
		})
	}
}

func TestDescribeFormat(t *testing.T) {
	assert.Equal(t, "native", DescribeFormat([]byte(`{"modules": []}`)))
	assert.Equal(t, "foreign", DescribeFormat([]byte(foreignDoc)))
	assert.Contains(t, DescribeFormat([]byte(`{}`)), "unrecognized")
}
