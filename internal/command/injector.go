// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package command provides the quick-insert command table.
package command

import (
	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds the user's quick commands in list order.
type Registry struct {
	commands []model.Command
	byID     map[string]int
}

// NewRegistry creates a registry from an ordered command list.
func NewRegistry(commands []model.Command) *Registry {
	r := &Registry{
		commands: make([]model.Command, 0, len(commands)),
		byID:     make(map[string]int),
	}
	for _, cmd := range commands {
		r.Add(cmd)
	}
	return r
}

// Add appends a command to the registry.
func (r *Registry) Add(cmd model.Command) {
	r.byID[cmd.ID] = len(r.commands)
	r.commands = append(r.commands, cmd)
}

// Remove deletes a command by ID, preserving the order of the rest.
func (r *Registry) Remove(id string) bool {
	idx, ok := r.byID[id]
	if !ok {
		return false
	}
	r.commands = append(r.commands[:idx], r.commands[idx+1:]...)
	delete(r.byID, id)
	for i := idx; i < len(r.commands); i++ {
		r.byID[r.commands[i].ID] = i
	}
	return true
}

// List returns the commands in list order. The slice is a copy; mutating it
// does not affect the registry.
func (r *Registry) List() []model.Command {
	out := make([]model.Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// =============================================================================
// INJECTION
// =============================================================================

// Expand resolves a selected command to its literal content for insertion
// into the pending user input. Pure lookup: no side effects, no mutation of
// stored commands.
func (r *Registry) Expand(id string) (string, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return r.commands[idx].Content, true
}
