// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"

	"github.com/seleane/persona/internal/util"
)

// =============================================================================
// POSITION TYPE
// =============================================================================

// PositionType discriminates the two placement modes of a module.
type PositionType string

const (
	// PositionRelative places the module among the other non-transcript
	// modules by priority order.
	PositionRelative PositionType = "relative"

	// PositionAbsolute splices the module into the conversation transcript at
	// a depth measured backward from the most recent turn.
	PositionAbsolute PositionType = "absolute"
)

// Position is a closed tagged variant: relative placement carries no depth,
// absolute placement carries a depth >= 0. Depth is the number of turns from
// the most recent turn at which the module is spliced into the transcript
// (0 = immediately before the last turn).
//
// The depth field is unexported so a relative position cannot carry a
// meaningless depth; use RelativePosition and AbsolutePosition to construct.
type Position struct {
	kind  PositionType
	depth int
}

// RelativePosition returns the relative placement variant.
func RelativePosition() Position {
	return Position{kind: PositionRelative}
}

// AbsolutePosition returns the absolute placement variant.
// Negative depths are clamped to 0.
func AbsolutePosition(depth int) Position {
	if depth < 0 {
		depth = 0
	}
	return Position{kind: PositionAbsolute, depth: depth}
}

// Type returns the variant tag. The zero value is relative.
func (p Position) Type() PositionType {
	if p.kind == "" {
		return PositionRelative
	}
	return p.kind
}

// IsAbsolute reports whether the position is the absolute variant.
func (p Position) IsAbsolute() bool {
	return p.Type() == PositionAbsolute
}

// Depth returns the splice depth and whether it is meaningful
// (false for the relative variant).
func (p Position) Depth() (int, bool) {
	if !p.IsAbsolute() {
		return 0, false
	}
	return p.depth, true
}

// positionJSON is the wire representation of Position.
type positionJSON struct {
	Type  PositionType `json:"type"`
	Depth *int         `json:"depth,omitempty"`
}

// MarshalJSON encodes {"type":"relative"} or {"type":"absolute","depth":n}.
func (p Position) MarshalJSON() ([]byte, error) {
	doc := positionJSON{Type: p.Type()}
	if p.IsAbsolute() {
		d := p.depth
		doc.Depth = &d
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes the tagged representation, rejecting unknown tags.
func (p *Position) UnmarshalJSON(data []byte) error {
	var doc positionJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	switch doc.Type {
	case PositionRelative, "":
		*p = RelativePosition()
	case PositionAbsolute:
		depth := 0
		if doc.Depth != nil {
			depth = *doc.Depth
		}
		*p = AbsolutePosition(depth)
	default:
		return errors.New("unknown position type: " + string(doc.Type))
	}
	return nil
}

// =============================================================================
// TRIGGERS TYPE
// =============================================================================

// Triggers is the keyword gate controlling conditional module inclusion.
type Triggers struct {
	// Enabled turns keyword gating on. When false, inclusion is governed
	// solely by Module.Enabled.
	Enabled bool `json:"enabled"`

	// Text is a comma-separated keyword list. Matching is case-insensitive
	// substring matching against the recent conversation window.
	Text string `json:"text"`
}

// Keywords returns the trimmed, lowercased, non-empty keyword list.
func (t Triggers) Keywords() []string {
	return util.SplitKeywords(t.Text)
}

// =============================================================================
// MODULE TYPE
// =============================================================================

// DefaultOrder is the priority assigned to modules that do not set one.
// Lower values sort earlier; ties are broken by collection order.
const DefaultOrder = 100

// Reserved module identifiers. Modules with these IDs are system-managed
// placeholder slots: the history slot marks where the assembled transcript is
// inserted, the lore slots bracket it.
const (
	SlotMainPrompt  = "main-prompt"
	SlotChatHistory = "chat-history"
	SlotLoreBefore  = "lore-before"
	SlotLoreAfter   = "lore-after"
)

// Module is a configurable, independently toggleable fragment of prompt
// content.
type Module struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Enabled is the user-controlled toggle. Locked modules cannot be
	// disabled by the user; readOnly modules carry system-managed content
	// that cannot be edited.
	Enabled  bool `json:"enabled"`
	Locked   bool `json:"locked"`
	ReadOnly bool `json:"readOnly"`

	// Order is the sort priority, default 100, lower sorts earlier.
	Order int `json:"order"`

	Position Position `json:"position"`
	Triggers Triggers `json:"triggers"`
}

// NewModule creates an enabled, relatively positioned module with the
// default order.
func NewModule(name string, role Role, content string) *Module {
	return &Module{
		ID:       generateID("mod"),
		Name:     name,
		Role:     role,
		Content:  content,
		Enabled:  true,
		Order:    DefaultOrder,
		Position: RelativePosition(),
	}
}

// IsAnchor reports whether the module is a read-only reserved slot that marks
// where the assembled transcript is placed relative to other modules. Anchors
// are treated as placement markers even when tagged absolute.
func (m *Module) IsAnchor() bool {
	if !m.ReadOnly {
		return false
	}
	switch m.ID {
	case SlotChatHistory, SlotLoreBefore, SlotLoreAfter:
		return true
	}
	return false
}

// SetEnabled toggles the module. Returns false without mutating when the
// module is locked; the UI boundary is expected to prevent the attempt, the
// data layer refuses it regardless.
func (m *Module) SetEnabled(enabled bool) bool {
	if m.Locked {
		return false
	}
	m.Enabled = enabled
	return true
}

// SetContent replaces the module content. Returns false without mutating when
// the content is system-managed (readOnly).
func (m *Module) SetContent(content string) bool {
	if m.ReadOnly {
		return false
	}
	m.Content = content
	return true
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	clone := *m
	return &clone
}
