// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"sort"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// LAYOUT RESOLUTION
// =============================================================================

// Layout is the resolved placement of the active modules for one assembly
// pass: relative modules in final priority order, and absolute modules
// grouped by the transcript index they splice into.
type Layout struct {
	// Relative modules sorted by Order ascending; equal Order values keep
	// collection order. The transcript anchor slot, if present, is included
	// here and marks where the transcript is inserted.
	Relative []*model.Module

	// Absolute maps a transcript splice index to the modules inserted before
	// the message at that index. Modules sharing an index keep their Order
	// among themselves.
	Absolute map[int][]*model.Module
}

// ResolveLayout computes the canonical module layout for the given transcript
// length. The result is deterministic for identical inputs: sorting is
// stable, so equal-priority modules keep the order they hold in the preset
// collection regardless of what trigger evaluation filtered out.
func ResolveLayout(active []*model.Module, transcriptLen int) Layout {
	relative := make([]*model.Module, 0, len(active))
	absolute := make([]*model.Module, 0)

	for _, m := range active {
		// Reserved read-only slots are placement anchors even when tagged
		// absolute: they mark where the transcript goes, they are not
		// spliced into it.
		if m.Position.IsAbsolute() && !m.IsAnchor() {
			absolute = append(absolute, m)
		} else {
			relative = append(relative, m)
		}
	}

	// Stable: preset import/export must be order-idempotent, so ties on
	// Order are broken by collection order, never re-shuffled.
	sort.SliceStable(relative, func(i, j int) bool {
		return relative[i].Order < relative[j].Order
	})
	sort.SliceStable(absolute, func(i, j int) bool {
		return absolute[i].Order < absolute[j].Order
	})

	slots := make(map[int][]*model.Module)
	for _, m := range absolute {
		depth, _ := m.Position.Depth()
		idx := spliceIndex(transcriptLen, depth)
		slots[idx] = append(slots[idx], m)
	}

	return Layout{Relative: relative, Absolute: slots}
}

// spliceIndex converts a depth (turns back from the most recent message) into
// the transcript index the module is inserted before. Depth 0 places the
// module immediately before the last message; a depth at or beyond the
// transcript length lands at index 0, the very start of history.
func spliceIndex(transcriptLen, depth int) int {
	idx := transcriptLen - 1 - depth
	if idx < 0 {
		return 0
	}
	if idx > transcriptLen {
		return transcriptLen
	}
	return idx
}

// splitAtAnchor partitions the sorted relative modules into the head (before
// the transcript) and tail (after it). The chat-history anchor slot owns the
// split when present; without one, system-role modules form the head and
// user/assistant modules the tail, each side keeping its sorted order.
func splitAtAnchor(relative []*model.Module) (head, tail []*model.Module) {
	for i, m := range relative {
		if m.ID == model.SlotChatHistory && m.IsAnchor() {
			head = append(head, relative[:i]...)
			tail = append(tail, relative[i+1:]...)
			return head, tail
		}
	}

	for _, m := range relative {
		if m.Role == model.RoleSystem {
			head = append(head, m)
		} else {
			tail = append(tail, m)
		}
	}
	return head, tail
}
