// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// REGEX RULE TYPE
// =============================================================================

// RegexRule is one find/replace step of the substitution pipeline. Rules are
// kept as an ordered list and applied in list order; each rule's output feeds
// the next. Find patterns are validated at save time, so persisted rules are
// always compilable.
type RegexRule struct {
	// Find is the pattern to match. Must compile; an empty pattern is
	// rejected at save time.
	Find string `json:"find"`

	// Replace is the replacement text. Empty deletes matches.
	Replace string `json:"replace"`

	// Notes is a user-facing label describing the rule.
	Notes string `json:"notes"`
}

// =============================================================================
// COMMAND TYPE
// =============================================================================

// Command is a quick-insert template: selecting it inserts Content verbatim
// into the pending user input. Pure lookup table, no ordering semantics
// beyond list position.
type Command struct {
	ID      string `json:"id"`
	Notes   string `json:"notes"`
	Content string `json:"content"`
}

// NewCommand creates a command with a generated ID.
func NewCommand(notes, content string) Command {
	return Command{
		ID:      generateID("cmd"),
		Notes:   notes,
		Content: content,
	}
}
