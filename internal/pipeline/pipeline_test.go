// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/seleane/persona/internal/model"
)

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestCompileRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    model.RegexRule
		wantErr error
	}{
		{
			name: "valid literal",
			rule: model.RegexRule{Find: "hello", Replace: "hi"},
		},
		{
			name: "valid pattern with quantifier",
			rule: model.RegexRule{Find: `\s+$`, Replace: ""},
		},
		{
			name:    "empty find pattern",
			rule:    model.RegexRule{Find: "", Replace: "x"},
			wantErr: ErrEmptyPattern,
		},
		{
			name:    "unbalanced group",
			rule:    model.RegexRule{Find: "(abc", Replace: ""},
			wantErr: ErrInvalidPattern,
		},
		{
			name:    "bad repetition",
			rule:    model.RegexRule{Find: "*abc", Replace: ""},
			wantErr: ErrInvalidPattern,
		},
		{
			name: "empty replacement is fine",
			rule: model.RegexRule{Find: "abc", Replace: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileRule(tt.rule)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CompileRule() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CompileRule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRules_ReportsPosition(t *testing.T) {
	rules := []model.RegexRule{
		{Find: "ok", Replace: ""},
		{Find: "(broken", Replace: ""},
	}

	err := ValidateRules(rules)
	if !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("ValidateRules() error = %v, want ErrInvalidPattern", err)
	}
	if !strings.Contains(err.Error(), "rule 1") {
		t.Errorf("error %q should name the failing rule's position", err)
	}

	if err := ValidateRules(nil); err != nil {
		t.Errorf("empty rule list should validate, got %v", err)
	}
}

// =============================================================================
// APPLY TESTS
// =============================================================================

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		rules []model.RegexRule
		in    string
		want  string
	}{
		{
			name: "strips reasoning tags",
			rules: []model.RegexRule{
				{Find: "<thinking>.*?</thinking>", Replace: ""},
			},
			in:   "<thinking>x</thinking>Hello",
			want: "Hello",
		},
		{
			name: "replaces all matches",
			rules: []model.RegexRule{
				{Find: "colour", Replace: "color"},
			},
			in:   "colour here, colour there",
			want: "color here, color there",
		},
		{
			name: "rules chain in order",
			rules: []model.RegexRule{
				{Find: "a", Replace: "b"},
				{Find: "b", Replace: "c"},
			},
			in:   "a",
			want: "c",
		},
		{
			name: "order matters",
			rules: []model.RegexRule{
				{Find: "b", Replace: "c"},
				{Find: "a", Replace: "b"},
			},
			in:   "a",
			want: "b",
		},
		{
			name: "capture group references",
			rules: []model.RegexRule{
				{Find: `\*([^*]+)\*`, Replace: "_$1_"},
			},
			in:   "some *emphasised* words",
			want: "some _emphasised_ words",
		},
		{
			name:  "no rules passes text through",
			rules: nil,
			in:    "unchanged",
			want:  "unchanged",
		},
		{
			name: "no match passes text through",
			rules: []model.RegexRule{
				{Find: "zzz", Replace: "yyy"},
			},
			in:   "unchanged",
			want: "unchanged",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.rules, tt.in); got != tt.want {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApply_SkipsBrokenRule(t *testing.T) {
	rules := []model.RegexRule{
		{Find: "(broken", Replace: "x"},
		{Find: "hello", Replace: "goodbye"},
	}

	// A rule that should never have been persisted is skipped, not fatal.
	if got := Apply(rules, "hello"); got != "goodbye" {
		t.Errorf("Apply() = %q, want %q", got, "goodbye")
	}
}
