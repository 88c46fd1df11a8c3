// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// TRIGGER MATCHER
// =============================================================================

// TriggerWindow is the default number of recent messages whose concatenated
// text is scanned for trigger keywords. Configuration can widen or narrow it.
const TriggerWindow = 4

// triggerWindowText concatenates the text of the most recent window messages,
// lowercased for case-insensitive matching.
func triggerWindowText(messages []*model.Message, window int) string {
	if window <= 0 {
		window = TriggerWindow
	}
	start := len(messages) - window
	if start < 0 {
		start = 0
	}

	var sb strings.Builder
	for _, msg := range messages[start:] {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return strings.ToLower(sb.String())
}

// TriggerActive decides whether a keyword-gated module fires against the
// given window text. An empty keyword list never fires: triggers are
// fail-closed so a module with gating enabled but no keywords filled in
// cannot silently inject content.
func TriggerActive(triggers model.Triggers, window string) bool {
	keywords := triggers.Keywords()
	if len(keywords) == 0 {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}

// ActiveModules filters the module collection down to the modules included in
// this turn: enabled modules whose trigger gate (if any) fires against the
// recent conversation window. Collection order is preserved. The default
// window size applies; configured sizes flow in through the Assembler.
func ActiveModules(modules []*model.Module, messages []*model.Message) []*model.Module {
	return activeModules(modules, messages, TriggerWindow)
}

func activeModules(modules []*model.Module, messages []*model.Message, windowSize int) []*model.Module {
	window := ""
	active := make([]*model.Module, 0, len(modules))

	for _, m := range modules {
		if !m.Enabled {
			continue
		}
		if m.Triggers.Enabled {
			if window == "" {
				window = triggerWindowText(messages, windowSize)
			}
			if !TriggerActive(m.Triggers, window) {
				continue
			}
		}
		active = append(active, m)
	}

	return active
}
