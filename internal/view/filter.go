// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package view

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// CategoryFilter narrows rendered challenges by a case-insensitive glob on
// their category. The zero value matches everything.
type CategoryFilter struct {
	pattern string
	g       glob.Glob
}

// NewCategoryFilter compiles pattern. An empty pattern matches everything.
func NewCategoryFilter(pattern string) (CategoryFilter, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return CategoryFilter{}, nil
	}
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return CategoryFilter{}, oops.Code("FILTER_INVALID").
			With("pattern", pattern).
			Wrapf(err, "invalid category pattern")
	}
	return CategoryFilter{pattern: pattern, g: g}, nil
}

// Pattern returns the source pattern.
func (f CategoryFilter) Pattern() string {
	return f.pattern
}

// Active reports whether the filter narrows anything.
func (f CategoryFilter) Active() bool {
	return f.g != nil
}

// Match reports whether category passes the filter.
func (f CategoryFilter) Match(category string) bool {
	if f.g == nil {
		return true
	}
	return f.g.Match(strings.ToLower(category))
}

// Apply returns the cards of l that pass the filter. Placeholder states are
// returned unchanged.
func (f CategoryFilter) Apply(l ChallengeList) ChallengeList {
	if f.g == nil || l.Status != StatusReady {
		return l
	}
	kept := make([]ChallengeCard, 0, len(l.Cards))
	for _, card := range l.Cards {
		if f.Match(card.Category) {
			kept = append(kept, card)
		}
	}
	return ChallengeList{Status: StatusReady, Cards: kept}
}
