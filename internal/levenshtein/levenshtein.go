// Copyright 2025 The OPA Authors
// SPDX-License-Identifier: Apache-2.0

// Package levenshtein suggests names that are close to a misspelled one.
package levenshtein

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// MaxDistanceForHint is the largest edit distance for which a name is
// suggested.
const MaxDistanceForHint = 3

// ClosestStrings returns the candidates with the smallest edit distance to a,
// provided that distance is below minDistance.
func ClosestStrings(minDistance int, a string, candidates iter.Seq[string]) []string {
	closestStrings := []string{}
	for c := range candidates {
		if c == a {
			continue
		}
		levDist := levenshtein.ComputeDistance(a, c)
		switch {
		case levDist < minDistance:
			closestStrings = []string{c}
			minDistance = levDist
		case levDist == minDistance:
			closestStrings = append(closestStrings, c)
		}
	}
	slices.Sort(closestStrings)
	return closestStrings
}

// Hint returns a "did you mean" suffix for a misspelled name or the empty
// string if no candidate is close enough.
func Hint(name string, candidates []string) string {
	closest := ClosestStrings(MaxDistanceForHint+1, name, slices.Values(candidates))
	switch len(closest) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf(", did you mean %q?", closest[0])
	}
	quoted := make([]string, len(closest))
	for i := range closest {
		quoted[i] = fmt.Sprintf("%q", closest[i])
	}
	return fmt.Sprintf(", did you mean any of %v?", strings.Join(quoted, ", "))
}
