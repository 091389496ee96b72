// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

// Package view holds the client's presentation state.
//
// The Controller decides which view is visible. The Screen holds one model
// per view, produced by the pure Render functions. Nothing in this package
// writes to a terminal.
package view

import (
	"strings"

	"github.com/samber/oops"
)

// View names a top-level screen.
type View string

// Views.
const (
	Auth       View = "auth"
	Challenges View = "challenges"
	Scoreboard View = "scoreboard"
	Admin      View = "admin"
)

// All returns every view in navigation order.
func All() []View {
	return []View{Auth, Challenges, Scoreboard, Admin}
}

// Parse resolves a view name, case-insensitively.
func Parse(name string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range All() {
		if v == known {
			return v, nil
		}
	}
	return "", oops.Code("VIEW_UNKNOWN").
		With("view", name).
		Errorf("unknown view %q", name)
}

func (v View) String() string {
	return string(v)
}
