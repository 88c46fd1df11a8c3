// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// CHAT TYPE
// =============================================================================

// ChatMeta holds user-visible chat metadata.
type ChatMeta struct {
	// Name is the display name. Empty means the chat falls back to an
	// auto-generated title from the first user message.
	Name string `json:"name"`

	// Notes is free-form user text attached to the chat.
	Notes string `json:"notes"`
}

// Chat is one conversation timeline. A chat with an empty ParentChatID is a
// root/main line; otherwise it is a branch forked from the parent at
// BranchPointIndex.
type Chat struct {
	ID          string   `json:"id"`
	CharacterID string   `json:"character_id"`
	Metadata    ChatMeta `json:"metadata"`

	Messages []*Message `json:"messages"`

	// Branch linkage. BranchPointIndex is the index into the parent's message
	// sequence at which this chat diverged; meaningless for root chats.
	ParentChatID     string `json:"parent_chat_id,omitempty"`
	BranchPointIndex int    `json:"branch_point_index,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	title string
}

// NewChat creates an empty root chat for a character.
func NewChat(characterID string) *Chat {
	now := time.Now()
	return &Chat{
		ID:          generateID("chat"),
		CharacterID: characterID,
		Messages:    make([]*Message, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the chat.
func (c *Chat) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
}

// AddUserMessage creates and appends a user message.
func (c *Chat) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and appends an assistant message.
func (c *Chat) AddAssistantMessage(content string) *Message {
	msg := NewAssistantMessage(content)
	c.AddMessage(msg)
	return msg
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// MessageCount returns the number of messages.
func (c *Chat) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Chat) IsEmpty() bool {
	return len(c.Messages) == 0
}

// IsBranch reports whether the chat was forked from a parent.
func (c *Chat) IsBranch() bool {
	return c.ParentChatID != ""
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if no
// display name has been set.
func (c *Chat) updateTitle() {
	if c.title != "" || c.Metadata.Name != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.title = msg.Preview(50)
			return
		}
	}
}

// Title returns the display name, the auto-generated title, or a default.
func (c *Chat) Title() string {
	if c.Metadata.Name != "" {
		return c.Metadata.Name
	}
	if c.title != "" {
		return c.title
	}
	return "New Chat"
}

// Preview returns a short preview of the chat for listing.
func (c *Chat) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return msg.Preview(80)
		}
	}
	return "Empty chat"
}

// =============================================================================
// COPY SEMANTICS
// =============================================================================

// Clone creates a deep copy of the chat. Branching copies rather than shares
// message storage so editing a branch never mutates history the user already
// branched from.
func (c *Chat) Clone() *Chat {
	clone := *c
	clone.Messages = make([]*Message, len(c.Messages))
	for i, msg := range c.Messages {
		msgCopy := *msg
		clone.Messages[i] = &msgCopy
	}
	return &clone
}

// CopyMessages returns deep copies of messages [0, end] inclusive, clamped to
// the available range.
func (c *Chat) CopyMessages(end int) []*Message {
	if end >= len(c.Messages) {
		end = len(c.Messages) - 1
	}
	if end < 0 {
		return make([]*Message, 0)
	}
	out := make([]*Message, 0, end+1)
	for _, msg := range c.Messages[:end+1] {
		msgCopy := *msg
		out = append(out, &msgCopy)
	}
	return out
}

// EstimateTokens estimates the total token count of the transcript.
func (c *Chat) EstimateTokens() int {
	total := 0
	for _, msg := range c.Messages {
		total += msg.EstimateTokens()
		// Overhead for message structure (~4 tokens per message)
		total += 4
	}
	return total
}
