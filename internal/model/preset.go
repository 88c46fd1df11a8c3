// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/google/uuid"
)

// =============================================================================
// PRESET TYPE
// =============================================================================

// Default generation parameters for new presets.
const (
	DefaultTemperature   = 0.8
	DefaultMaxTokens     = 1024
	DefaultContextLength = 8192
)

// DefaultPresetID is the fixed identifier of the regenerable default preset.
const DefaultPresetID = "default"

// Preset is a named collection of modules plus generation parameters.
type Preset struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Generation parameters. Temperature and MaxTokens pass through to the
	// model call unmodified; ContextLength bounds the assembled request.
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"maxTokens"`
	ContextLength int     `json:"contextLength"`

	// Modules in collection order. Collection order is the tie-breaker for
	// equal Order values, so it must survive export/import unchanged.
	Modules []*Module `json:"modules"`
}

// NewPreset creates an empty preset with generated ID and default parameters.
func NewPreset(name string) *Preset {
	return &Preset{
		ID:            uuid.NewString(),
		Name:          name,
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
		ContextLength: DefaultContextLength,
	}
}

// DefaultPreset builds the built-in preset. The result is identical on every
// call (fixed IDs, fixed content) so resetting to defaults is idempotent.
func DefaultPreset() *Preset {
	mainPrompt := &Module{
		ID:       SlotMainPrompt,
		Name:     "Main Prompt",
		Role:     RoleSystem,
		Content:  "Write the next reply in this conversation, staying in character.",
		Enabled:  true,
		Order:    10,
		Position: RelativePosition(),
	}
	loreBefore := &Module{
		ID:       SlotLoreBefore,
		Name:     "World Info (before)",
		Role:     RoleSystem,
		Enabled:  true,
		Locked:   true,
		ReadOnly: true,
		Order:    20,
		Position: RelativePosition(),
	}
	history := &Module{
		ID:       SlotChatHistory,
		Name:     "Chat History",
		Role:     RoleSystem,
		Enabled:  true,
		Locked:   true,
		ReadOnly: true,
		Order:    30,
		Position: RelativePosition(),
	}
	loreAfter := &Module{
		ID:       SlotLoreAfter,
		Name:     "World Info (after)",
		Role:     RoleSystem,
		Enabled:  true,
		Locked:   true,
		ReadOnly: true,
		Order:    40,
		Position: RelativePosition(),
	}

	return &Preset{
		ID:            DefaultPresetID,
		Name:          "Default",
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
		ContextLength: DefaultContextLength,
		Modules:       []*Module{mainPrompt, loreBefore, history, loreAfter},
	}
}

// =============================================================================
// MODULE COLLECTION
// =============================================================================

// AddModule appends a module to the collection.
func (p *Preset) AddModule(m *Module) {
	p.Modules = append(p.Modules, m)
}

// GetModule returns a module by ID, or nil.
func (p *Preset) GetModule(id string) *Module {
	for _, m := range p.Modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// RemoveModule removes a module by ID. Read-only slots are system-managed and
// cannot be removed; the call reports whether a removal happened.
func (p *Preset) RemoveModule(id string) bool {
	for i, m := range p.Modules {
		if m.ID != id {
			continue
		}
		if m.ReadOnly {
			return false
		}
		p.Modules = append(p.Modules[:i], p.Modules[i+1:]...)
		return true
	}
	return false
}

// Clone returns a deep copy of the preset.
func (p *Preset) Clone() *Preset {
	clone := *p
	clone.Modules = make([]*Module, len(p.Modules))
	for i, m := range p.Modules {
		clone.Modules[i] = m.Clone()
	}
	return &clone
}
