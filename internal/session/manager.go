// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the active preset/chat context for one user session.
package session

import (
	"sync"
	"time"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the in-memory snapshot the engine operates on: the active
// preset and the active chat pointer. The host environment is single-user
// and single-session; the mutex only guards against UI callbacks racing
// persistence.
type Manager struct {
	mu sync.Mutex

	sessionID string
	startTime time.Time
	defaults  func() *model.Preset

	preset       *model.Preset
	activeChatID string

	isDirty bool
}

// NewManager creates a session manager with the built-in default preset
// active.
func NewManager() *Manager {
	return NewManagerWith(model.DefaultPreset)
}

// NewManagerWith creates a session manager whose default preset comes from
// the given factory, letting configuration seed generation parameters. The
// factory is constructor-supplied and never reassigned; ResetPreset
// regenerates through it.
func NewManagerWith(defaults func() *model.Preset) *Manager {
	if defaults == nil {
		defaults = model.DefaultPreset
	}
	return &Manager{
		sessionID: "sess_" + time.Now().Format("20060102_150405"),
		startTime: time.Now(),
		defaults:  defaults,
		preset:    defaults(),
	}
}

// SessionID returns the current session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// StartTime returns when the session started.
func (m *Manager) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTime
}

// =============================================================================
// ACTIVE PRESET
// =============================================================================

// ActivePreset returns the active preset.
func (m *Manager) ActivePreset() *model.Preset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preset
}

// SetActivePreset swaps the active preset.
func (m *Manager) SetActivePreset(p *model.Preset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preset = p
	m.isDirty = true
}

// ResetPreset restores the default preset. Idempotent: the default is
// regenerated from the factory's fixed content, so repeated resets converge
// on the same state.
func (m *Manager) ResetPreset() *model.Preset {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preset = m.defaults()
	m.isDirty = true
	return m.preset
}

// =============================================================================
// ACTIVE CHAT
// =============================================================================

// ActiveChatID returns the active chat pointer, or "".
func (m *Manager) ActiveChatID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeChatID
}

// SetActiveChat moves the active chat pointer. Pure navigation.
func (m *Manager) SetActiveChat(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeChatID = chatID
}

// =============================================================================
// DIRTY TRACKING
// =============================================================================

// MarkDirty indicates the session has unsaved changes.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
}

// MarkClean indicates the session has been saved.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = false
}

// IsDirty returns whether the session has unsaved changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty
}
