// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for presets, modules, chats and
// the transformation rule tables.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/seleane/persona/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message or the role tag of a prompt block.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the three recognized values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a chat.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID("msg"),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

// Preview returns a single-line, rune-safe truncated preview of the message
// content for titles and listings.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateString(util.OneLine(m.Content), maxLen)
}

// EstimateTokens gives a rough estimate of token count.
// Uses the approximation of ~4 characters per token.
func (m *Message) EstimateTokens() int {
	return (len(m.Content) + 3) / 4
}

// =============================================================================
// PROMPT BLOCK TYPE
// =============================================================================

// PromptBlock is one role-tagged unit of the assembled request payload.
// The engine emits an ordered list of these; the wire protocol used to submit
// them belongs to the model-call collaborator, not to this package.
type PromptBlock struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EstimateTokens estimates the token cost of the block (~4 chars per token).
func (b PromptBlock) EstimateTokens() int {
	return (len(b.Content) + 3) / 4
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique prefixed ID, e.g. "msg_a1b2c3d4e5f60718".
func generateID(prefix string) string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return prefix + "_" + hex.EncodeToString(bytes)
}
