// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline applies ordered find/replace rules to model output text.
//
// Rules are validated when saved, never at apply time: CompileRule rejects
// empty or uncompilable patterns before they reach persistence, so Apply can
// assume every stored rule compiles.
package pipeline

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyPattern is returned when a rule has no find pattern.
	ErrEmptyPattern = errors.New("rule has no find pattern")

	// ErrInvalidPattern is returned when a find pattern fails to compile.
	ErrInvalidPattern = errors.New("invalid find pattern")
)

// =============================================================================
// RULE VALIDATION
// =============================================================================

// CompileRule validates a rule for saving. It returns the compiled pattern,
// or ErrEmptyPattern / ErrInvalidPattern when the rule must be rejected
// before persistence.
func CompileRule(rule model.RegexRule) (*regexp.Regexp, error) {
	if rule.Find == "" {
		return nil, ErrEmptyPattern
	}
	re, err := regexp.Compile(rule.Find)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}

// ValidateRules checks every rule in a list, reporting the first failure with
// its position.
func ValidateRules(rules []model.RegexRule) error {
	for i, rule := range rules {
		if _, err := CompileRule(rule); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// =============================================================================
// APPLICATION
// =============================================================================

// Apply runs the rules against text in list order, each rule's output feeding
// the next. All matches of a pattern are replaced; an empty replacement
// deletes matches. Rules that fail to compile are skipped: save-time
// validation keeps them out of the store, this is the data layer refusing to
// fail on state it should never see.
func Apply(rules []model.RegexRule, text string) string {
	for _, rule := range rules {
		re, err := CompileRule(rule)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, rule.Replace)
	}
	return text
}
