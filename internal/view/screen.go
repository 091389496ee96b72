// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package view

import (
	"strconv"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/api"
)

// AuthMode selects which auth form is shown.
type AuthMode string

// Auth modes.
const (
	ModeLogin    AuthMode = "login"
	ModeRegister AuthMode = "register"
)

// AuthModel is the auth view model.
type AuthModel struct {
	Mode AuthMode
}

// AdminForm holds the create-challenge form fields as typed.
type AdminForm struct {
	Title       string
	Description string
	Points      string
	Category    string
	Flag        string
}

// Set assigns a field by its form name.
func (f *AdminForm) Set(field, value string) error {
	switch strings.ToLower(field) {
	case "title":
		f.Title = value
	case "description", "desc":
		f.Description = value
	case "points":
		f.Points = value
	case "category":
		f.Category = value
	case "flag":
		f.Flag = value
	default:
		return oops.Code("FORM_FIELD").
			With("field", field).
			Errorf("unknown field %q (want title, description, points, category or flag)", field)
	}
	return nil
}

// Challenge converts the form to a create payload.
func (f AdminForm) Challenge() (api.NewChallenge, error) {
	if strings.TrimSpace(f.Title) == "" {
		return api.NewChallenge{}, oops.Code("FORM_INVALID").With("field", "title").Errorf("title is required")
	}
	if strings.TrimSpace(f.Flag) == "" {
		return api.NewChallenge{}, oops.Code("FORM_INVALID").With("field", "flag").Errorf("flag is required")
	}
	points, err := strconv.Atoi(strings.TrimSpace(f.Points))
	if err != nil {
		return api.NewChallenge{}, oops.Code("FORM_INVALID").
			With("field", "points").
			Wrapf(err, "points must be a whole number")
	}
	return api.NewChallenge{
		Title:       f.Title,
		Description: f.Description,
		Points:      points,
		Category:    f.Category,
		Flag:        f.Flag,
	}, nil
}

// Screen holds every view model. Each setter replaces its model wholesale,
// so the last write wins.
type Screen struct {
	mu         sync.RWMutex
	auth       AuthModel
	challenges ChallengeList
	scores     ScoreTable
	admin      AdminList
	form       AdminForm
	filter     CategoryFilter
	listeners  []func(View)
}

// NewScreen returns a screen with every list in its loading state.
func NewScreen() *Screen {
	return &Screen{
		auth:       AuthModel{Mode: ModeLogin},
		challenges: LoadingChallenges(),
		scores:     LoadingScoreboard(),
		admin:      LoadingAdmin(),
	}
}

// OnUpdate adds a listener called with the view whose model changed.
func (s *Screen) OnUpdate(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Screen) update(v View, apply func()) {
	s.mu.Lock()
	apply()
	listeners := append([]func(View){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}

// SetChallenges replaces the challenges model.
func (s *Screen) SetChallenges(l ChallengeList) {
	s.update(Challenges, func() { s.challenges = l })
}

// Challenges returns the challenges model as fetched.
func (s *Screen) Challenges() ChallengeList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.challenges
}

// VisibleChallenges returns the challenges model narrowed by the filter.
func (s *Screen) VisibleChallenges() ChallengeList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Apply(s.challenges)
}

// SetFilter replaces the category filter.
func (s *Screen) SetFilter(f CategoryFilter) {
	s.update(Challenges, func() { s.filter = f })
}

// Filter returns the category filter.
func (s *Screen) Filter() CategoryFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetScoreboard replaces the scoreboard model.
func (s *Screen) SetScoreboard(t ScoreTable) {
	s.update(Scoreboard, func() { s.scores = t })
}

// Scoreboard returns the scoreboard model.
func (s *Screen) Scoreboard() ScoreTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores
}

// SetAdmin replaces the admin list model.
func (s *Screen) SetAdmin(l AdminList) {
	s.update(Admin, func() { s.admin = l })
}

// Admin returns the admin list model.
func (s *Screen) Admin() AdminList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin
}

// SetForm replaces the create-challenge form.
func (s *Screen) SetForm(f AdminForm) {
	s.update(Admin, func() { s.form = f })
}

// Form returns the create-challenge form.
func (s *Screen) Form() AdminForm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form
}

// ResetForm clears the create-challenge form.
func (s *Screen) ResetForm() {
	s.SetForm(AdminForm{})
}

// SetAuthMode switches the auth form.
func (s *Screen) SetAuthMode(m AuthMode) {
	s.update(Auth, func() { s.auth = AuthModel{Mode: m} })
}

// Auth returns the auth model.
func (s *Screen) Auth() AuthModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}
