// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// REQUEST TYPE
// =============================================================================

// Request is the assembled payload handed to the model-call collaborator:
// an ordered list of role-tagged blocks plus the pass-through generation
// parameters. The engine does not know the wire protocol used to submit it.
type Request struct {
	Blocks      []model.PromptBlock `json:"blocks"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

// EstimateTokens estimates the total token cost of the request blocks.
func (r Request) EstimateTokens() int {
	total := 0
	for _, b := range r.Blocks {
		total += b.EstimateTokens()
		total += 4 // structural overhead per block
	}
	return total
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// minTranscript is the floor for budget trimming: the most recent user and
// assistant exchange always survives so at least minimal context reaches the
// model.
const minTranscript = 2

// Assembler carries the assembly-time settings that come from configuration.
// The zero value uses the package defaults.
type Assembler struct {
	// TriggerWindow is how many recent messages the trigger matcher scans;
	// 0 means the default.
	TriggerWindow int
}

// Assemble composes the active modules and the chat transcript into the final
// ordered block sequence, enforcing the preset's context-length budget. It
// uses the default settings; configured callers go through an Assembler.
func Assemble(preset *model.Preset, chat *model.Chat) Request {
	return Assembler{}.Assemble(preset, chat)
}

// Assemble composes the request with this assembler's settings.
//
// Assembly never fails outright: a nil or empty preset degrades to a request
// holding only the transcript.
func (a Assembler) Assemble(preset *model.Preset, chat *model.Chat) Request {
	var (
		modules       []*model.Module
		temperature   = model.DefaultTemperature
		maxTokens     = model.DefaultMaxTokens
		contextLength = model.DefaultContextLength
	)
	if preset != nil {
		modules = preset.Modules
		temperature = preset.Temperature
		maxTokens = preset.MaxTokens
		contextLength = preset.ContextLength
	}

	var transcript []*model.Message
	if chat != nil {
		transcript = chat.Messages
	}

	active := activeModules(modules, transcript, a.TriggerWindow)

	// Budget: trim the oldest transcript messages first, never the modules,
	// since modules are explicit user configuration. Module cost is fixed,
	// so the surviving transcript length can be computed up front.
	transcript = trimTranscript(transcript, active, contextLength)

	layout := ResolveLayout(active, len(transcript))
	head, tail := splitAtAnchor(layout.Relative)

	blocks := make([]model.PromptBlock, 0, len(active)+len(transcript))
	for _, m := range head {
		blocks = appendModuleBlock(blocks, m)
	}
	for i, msg := range transcript {
		for _, m := range layout.Absolute[i] {
			blocks = appendModuleBlock(blocks, m)
		}
		blocks = append(blocks, model.PromptBlock{Role: msg.Role, Content: msg.Content})
	}
	// Absolute modules that resolved past the last message.
	for _, m := range layout.Absolute[len(transcript)] {
		blocks = appendModuleBlock(blocks, m)
	}
	for _, m := range tail {
		blocks = appendModuleBlock(blocks, m)
	}

	return Request{
		Blocks:      blocks,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// appendModuleBlock appends a module's content as a block. Anchor slots carry
// no content of their own and reserved empty modules emit nothing.
func appendModuleBlock(blocks []model.PromptBlock, m *model.Module) []model.PromptBlock {
	if m.IsAnchor() || m.Content == "" {
		return blocks
	}
	return append(blocks, model.PromptBlock{Role: m.Role, Content: m.Content})
}

// trimTranscript drops the oldest messages until the assembled sequence fits
// the context-length budget or only the most recent exchange remains,
// whichever comes first.
func trimTranscript(transcript []*model.Message, active []*model.Module, contextLength int) []*model.Message {
	if contextLength <= 0 {
		return transcript
	}

	moduleCost := 0
	for _, m := range active {
		if m.IsAnchor() || m.Content == "" {
			continue
		}
		moduleCost += (len(m.Content)+3)/4 + 4
	}

	transcriptCost := 0
	for _, msg := range transcript {
		transcriptCost += msg.EstimateTokens() + 4
	}

	for len(transcript) > minTranscript && moduleCost+transcriptCost > contextLength {
		transcriptCost -= transcript[0].EstimateTokens() + 4
		transcript = transcript[1:]
	}

	return transcript
}
