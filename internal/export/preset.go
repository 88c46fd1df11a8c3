// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export implements the preset exchange formats.
//
// Two document schemas are accepted on import: the native schema written by
// ExportPreset, and a foreign schema carrying an ordered list of prompt
// entries keyed by identifier plus a separate ordering list keyed by a fixed
// group id. Foreign documents are converted field-by-field into the native
// module schema; anything else is rejected as unrecognized.
package export

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnrecognizedFormat is returned when a document matches neither the
	// native nor the foreign preset schema. No partial import occurs.
	ErrUnrecognizedFormat = errors.New("unrecognized preset format")
)

// =============================================================================
// NATIVE SCHEMA
// =============================================================================

// PresetDocument is the native exchange document.
type PresetDocument struct {
	Name          string          `json:"name"`
	Temperature   float64         `json:"temperature"`
	MaxTokens     int             `json:"maxTokens"`
	ContextLength int             `json:"contextLength"`
	Modules       []*model.Module `json:"modules"`
}

// ExportPreset serializes a preset to the native document format. A preset
// with no modules exports an empty array, never null: the modules key is the
// native schema's discriminator and must survive a round trip.
func ExportPreset(p *model.Preset) ([]byte, error) {
	modules := p.Modules
	if modules == nil {
		modules = []*model.Module{}
	}
	doc := PresetDocument{
		Name:          p.Name,
		Temperature:   p.Temperature,
		MaxTokens:     p.MaxTokens,
		ContextLength: p.ContextLength,
		Modules:       modules,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ImportPreset parses a preset document in either accepted schema. The
// returned preset carries a newly assigned id; module order and fields are
// preserved exactly, so export-then-import reproduces an identical module
// list.
func ImportPreset(data []byte) (*model.Preset, error) {
	if p, ok := importNative(data); ok {
		return p, nil
	}
	if p, ok := importForeign(data); ok {
		return p, nil
	}
	return nil, ErrUnrecognizedFormat
}

// importNative attempts the native schema. Presence of a modules array is the
// schema discriminator.
func importNative(data []byte) (*model.Preset, bool) {
	var doc PresetDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	if doc.Modules == nil {
		return nil, false
	}

	p := &model.Preset{
		ID:            uuid.NewString(),
		Name:          doc.Name,
		Temperature:   doc.Temperature,
		MaxTokens:     doc.MaxTokens,
		ContextLength: doc.ContextLength,
		Modules:       doc.Modules,
	}
	if p.Name == "" {
		p.Name = "Imported Preset"
	}
	return p, true
}

// =============================================================================
// FOREIGN SCHEMA
// =============================================================================

// foreignGroupID is the fixed group id the foreign schema keys its ordering
// list by.
const foreignGroupID = 100001

// foreignDocument mirrors the foreign prompt-preset layout: entries keyed by
// identifier, ordering kept in a separate list.
type foreignDocument struct {
	Prompts     []foreignPrompt `json:"prompts"`
	PromptOrder []foreignOrder  `json:"prompt_order"`

	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"openai_max_tokens"`
	MaxContext  int     `json:"openai_max_context"`
}

type foreignPrompt struct {
	Identifier        string `json:"identifier"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	Content           string `json:"content"`
	Marker            bool   `json:"marker"`
	InjectionPosition int    `json:"injection_position"`
	InjectionDepth    int    `json:"injection_depth"`
}

type foreignOrder struct {
	CharacterID int                 `json:"character_id"`
	Order       []foreignOrderEntry `json:"order"`
}

type foreignOrderEntry struct {
	Identifier string `json:"identifier"`
	Enabled    bool   `json:"enabled"`
}

// foreignSlots maps foreign marker identifiers to the reserved slot ids.
var foreignSlots = map[string]string{
	"main":            model.SlotMainPrompt,
	"chatHistory":     model.SlotChatHistory,
	"worldInfoBefore": model.SlotLoreBefore,
	"worldInfoAfter":  model.SlotLoreAfter,
}

// importForeign attempts the foreign schema and converts it field-by-field.
func importForeign(data []byte) (*model.Preset, bool) {
	var doc foreignDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	if len(doc.Prompts) == 0 {
		return nil, false
	}

	byIdentifier := make(map[string]foreignPrompt, len(doc.Prompts))
	for _, fp := range doc.Prompts {
		byIdentifier[fp.Identifier] = fp
	}

	// Collection order comes from the ordering list for the fixed group id;
	// fall back to the entry list itself when no ordering is present.
	ordering := make([]foreignOrderEntry, 0, len(doc.Prompts))
	found := false
	for _, po := range doc.PromptOrder {
		if po.CharacterID == foreignGroupID {
			ordering = po.Order
			found = true
			break
		}
	}
	if !found {
		for _, fp := range doc.Prompts {
			ordering = append(ordering, foreignOrderEntry{Identifier: fp.Identifier, Enabled: true})
		}
	}

	p := model.NewPreset("Imported Preset")
	p.Temperature = doc.Temperature
	if doc.MaxTokens > 0 {
		p.MaxTokens = doc.MaxTokens
	}
	if doc.MaxContext > 0 {
		p.ContextLength = doc.MaxContext
	}

	order := 0
	for _, entry := range ordering {
		fp, ok := byIdentifier[entry.Identifier]
		if !ok {
			continue
		}
		order += 10

		m := convertForeignPrompt(fp)
		m.Enabled = entry.Enabled
		m.Order = order
		if m.Locked {
			m.Enabled = true
		}
		p.AddModule(m)
	}

	if len(p.Modules) == 0 {
		return nil, false
	}
	return p, true
}

// convertForeignPrompt maps one foreign entry onto the native module schema.
func convertForeignPrompt(fp foreignPrompt) *model.Module {
	m := &model.Module{
		ID:       fp.Identifier,
		Name:     fp.Name,
		Role:     convertForeignRole(fp.Role),
		Content:  fp.Content,
		Position: model.RelativePosition(),
	}

	// Position 1 is the foreign schema's in-chat injection mode.
	if fp.InjectionPosition == 1 {
		m.Position = model.AbsolutePosition(fp.InjectionDepth)
	}

	// Marker entries are the foreign schema's reserved slots.
	if fp.Marker {
		if slot, ok := foreignSlots[fp.Identifier]; ok {
			m.ID = slot
		}
		m.ReadOnly = true
		m.Locked = true
		if m.Name == "" {
			m.Name = fp.Identifier
		}
	}

	if m.Name == "" {
		m.Name = fp.Identifier
	}
	return m
}

// convertForeignRole normalizes a foreign role string, defaulting to system.
func convertForeignRole(role string) model.Role {
	switch model.Role(role) {
	case model.RoleUser:
		return model.RoleUser
	case model.RoleAssistant:
		return model.RoleAssistant
	default:
		return model.RoleSystem
	}
}

// =============================================================================
// VALIDATION HELPERS
// =============================================================================

// DescribeFormat reports which schema a document matches, for user-facing
// error messages.
func DescribeFormat(data []byte) string {
	if _, ok := importNative(data); ok {
		return "native"
	}
	if _, ok := importForeign(data); ok {
		return "foreign"
	}
	return fmt.Sprintf("unrecognized (%d bytes)", len(data))
}
