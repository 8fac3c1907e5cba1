// Copyright 2025 The OPA Authors
// SPDX-License-Identifier: Apache-2.0

package levenshtein

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClosestStrings(t *testing.T) {
	tests := []struct {
		note       string
		name       string
		candidates []string
		exp        []string
	}{
		{
			note:       "single match",
			name:       "exprr",
			candidates: []string{"expr", "term", "factor"},
			exp:        []string{"expr"},
		},
		{
			note:       "ties sorted",
			name:       "tem",
			candidates: []string{"term", "team", "factor"},
			exp:        []string{"team", "term"},
		},
		{
			note:       "exact name skipped",
			name:       "expr",
			candidates: []string{"expr"},
			exp:        []string{},
		},
		{
			note:       "too far",
			name:       "number",
			candidates: []string{"ws"},
			exp:        []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			got := ClosestStrings(MaxDistanceForHint+1, tc.name, slices.Values(tc.candidates))
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Fatalf("Closest mismatch (-want +got):\n%v", diff)
			}
		})
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		note       string
		name       string
		candidates []string
		exp        string
	}{
		{
			note:       "none",
			name:       "number",
			candidates: []string{"ws"},
			exp:        "",
		},
		{
			note:       "one",
			name:       "exprr",
			candidates: []string{"expr", "factor"},
			exp:        `, did you mean "expr"?`,
		},
		{
			note:       "many",
			name:       "tem",
			candidates: []string{"term", "team"},
			exp:        `, did you mean any of "team", "term"?`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if got := Hint(tc.name, tc.candidates); got != tc.exp {
				t.Fatalf("Expected %q but got %q", tc.exp, got)
			}
		})
	}
}
