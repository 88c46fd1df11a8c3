// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package branch owns the tree of chats: creating a branch at a chosen point
// in a parent chat, listing siblings, renaming, deleting, and selecting the
// active chat.
//
// The tree is a parent-pointer structure: each chat holds an optional parent
// id, and children are resolved through a derived index rather than stored
// back-references, which keeps cyclic-ownership bugs out of the data model.
package branch

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrChatNotFound is returned when a chat id resolves to nothing.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyName is returned when a rename supplies an empty or
	// whitespace-only name.
	ErrEmptyName = errors.New("branch name must not be empty")

	// ErrBadBranchPoint is returned when the branch index is outside the
	// parent's message sequence.
	ErrBadBranchPoint = errors.New("branch point outside parent messages")
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager holds the in-memory chat tree for the active session.
type Manager struct {
	chats    map[string]*model.Chat
	children map[string][]string // derived: parent id -> child ids
	activeID string
}

// NewManager creates an empty chat tree.
func NewManager() *Manager {
	return &Manager{
		chats:    make(map[string]*model.Chat),
		children: make(map[string][]string),
	}
}

// Add registers a chat with the manager.
func (m *Manager) Add(chat *model.Chat) {
	m.chats[chat.ID] = chat
	if chat.ParentChatID != "" {
		m.children[chat.ParentChatID] = append(m.children[chat.ParentChatID], chat.ID)
	}
}

// Get returns a chat by id, or nil.
func (m *Manager) Get(id string) *model.Chat {
	return m.chats[id]
}

// All returns every chat in the tree, in no particular order.
func (m *Manager) All() []*model.Chat {
	out := make([]*model.Chat, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, c)
	}
	return out
}

// =============================================================================
// BRANCH OPERATIONS
// =============================================================================

// CreateBranch forks a new chat from the parent at the given message index.
// Messages [0, index] are deep-copied into the new chat: copy, not reference,
// so the branch is independently mutable and history the user branched from
// can never be retroactively rewritten through it.
func (m *Manager) CreateBranch(parentID string, index int) (*model.Chat, error) {
	parent, ok := m.chats[parentID]
	if !ok {
		return nil, ErrChatNotFound
	}
	if index < 0 || index >= len(parent.Messages) {
		return nil, ErrBadBranchPoint
	}

	child := model.NewChat(parent.CharacterID)
	child.ParentChatID = parent.ID
	child.BranchPointIndex = index
	child.Messages = parent.CopyMessages(index)

	m.Add(child)
	return child, nil
}

// ListBranches returns the children of a chat, most recently created first.
// Branches with an explicit display name sort ahead of unnamed ones, by name.
func (m *Manager) ListBranches(parentID string) []*model.Chat {
	ids := m.children[parentID]
	out := make([]*model.Chat, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.chats[id]; ok {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := out[i].Metadata.Name, out[j].Metadata.Name
		if (ni != "") != (nj != "") {
			return ni != ""
		}
		if ni != "" && nj != "" && ni != nj {
			return ni < nj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RenameBranch sets a chat's display name. Empty or whitespace-only names are
// rejected.
func (m *Manager) RenameBranch(chatID, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	chat, ok := m.chats[chatID]
	if !ok {
		return ErrChatNotFound
	}
	chat.Metadata.Name = name
	chat.UpdatedAt = time.Now()
	return nil
}

// DeleteBranch removes a chat from the tree. Descendant branches are not
// deleted with it: they are reparented to the deleted chat's own parent so
// the tree stays connected and no live chat ends up pointing at a
// nonexistent parent. A branch of a deleted root becomes a root itself.
func (m *Manager) DeleteBranch(chatID string) error {
	chat, ok := m.chats[chatID]
	if !ok {
		return ErrChatNotFound
	}

	for _, childID := range m.children[chatID] {
		child, ok := m.chats[childID]
		if !ok {
			continue
		}
		m.reparent(child, chat)
	}
	delete(m.children, chatID)

	if chat.ParentChatID != "" {
		m.children[chat.ParentChatID] = removeID(m.children[chat.ParentChatID], chatID)
	}
	delete(m.chats, chatID)

	if m.activeID == chatID {
		m.activeID = ""
	}
	return nil
}

// reparent attaches child to the deleted chat's parent. The child's branch
// point cannot exceed the point at which the deleted chat itself diverged,
// since everything past it belongs to the deleted timeline.
func (m *Manager) reparent(child, deleted *model.Chat) {
	if deleted.ParentChatID == "" {
		child.ParentChatID = ""
		child.BranchPointIndex = 0
		return
	}
	child.ParentChatID = deleted.ParentChatID
	if child.BranchPointIndex > deleted.BranchPointIndex {
		child.BranchPointIndex = deleted.BranchPointIndex
	}
	m.children[deleted.ParentChatID] = append(m.children[deleted.ParentChatID], child.ID)
}

// =============================================================================
// SELECTION
// =============================================================================

// SelectBranch sets the active chat pointer. Pure navigation: no branch data
// is mutated.
func (m *Manager) SelectBranch(chatID string) error {
	if _, ok := m.chats[chatID]; !ok {
		return ErrChatNotFound
	}
	m.activeID = chatID
	return nil
}

// Active returns the currently selected chat, or nil.
func (m *Manager) Active() *model.Chat {
	if m.activeID == "" {
		return nil
	}
	return m.chats[m.activeID]
}

// ActiveID returns the currently selected chat id, or "".
func (m *Manager) ActiveID() string {
	return m.activeID
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
