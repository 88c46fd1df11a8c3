// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt implements the prompt-composition engine: trigger-gated
// module activation, module ordering and positioning, and assembly of the
// final request payload.
//
// # Key Types
//
//   - Layout: resolved placement of active modules around the transcript
//   - Request: ordered role-tagged blocks plus generation parameters
//
// # Pipeline
//
// Assembly runs in three stages:
//
//	active := prompt.ActiveModules(preset.Modules, chat.Messages)
//	layout := prompt.ResolveLayout(active, chat.MessageCount())
//	req := prompt.Assemble(preset, chat)
//
// Each stage is pure and deterministic: identical inputs always produce an
// identical assembled sequence, so a retried request re-runs assembly fresh
// instead of resuming partial work.
package prompt
