// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package view

import (
	"fmt"

	"github.com/flagdeck/flagdeck/internal/api"
)

// Status is the lifecycle of a view model.
type Status string

// Model statuses.
const (
	StatusLoading Status = "loading"
	StatusEmpty   Status = "empty"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Placeholder texts.
const (
	TextLoadingChallenges = "Loading modules..."
	TextNoChallenges      = "No active challenges found."
	TextLoadingScoreboard = "Calculating..."
	TextLoadingAdmin      = "Loading..."
	TextAdminFailed       = "Error loading challenges"
)

// Scoreboard tiers.
const (
	TierElite  = "ELITE"
	TierActive = "ACTIVE"
)

// eliteRanks is how many leading ranks get the elite tier.
const eliteRanks = 3

// ChallengeCard is one rendered challenge with its submission target.
type ChallengeCard struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// ChallengeList is the challenges view model.
type ChallengeList struct {
	Status Status
	Cards  []ChallengeCard
}

// Placeholder returns the text shown instead of cards, if any.
func (l ChallengeList) Placeholder() string {
	switch l.Status {
	case StatusLoading:
		return TextLoadingChallenges
	case StatusEmpty:
		return TextNoChallenges
	default:
		return ""
	}
}

// ScoreRow is one ranked scoreboard row.
type ScoreRow struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Admin    bool   `json:"is_admin"`
	Score    int    `json:"score"`
	Tier     string `json:"tier"`
}

// RankLabel is the rank as displayed, e.g. "#1".
func (r ScoreRow) RankLabel() string {
	return fmt.Sprintf("#%d", r.Rank)
}

// ScoreTable is the scoreboard view model.
type ScoreTable struct {
	Status Status
	Rows   []ScoreRow
}

// Placeholder returns the text shown instead of rows, if any.
func (t ScoreTable) Placeholder() string {
	if t.Status == StatusLoading {
		return TextLoadingScoreboard
	}
	return ""
}

// AdminItem is one challenge in the admin list.
type AdminItem struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// AdminList is the admin view model.
type AdminList struct {
	Status Status
	Items  []AdminItem
}

// Placeholder returns the text shown instead of items, if any.
func (l AdminList) Placeholder() string {
	switch l.Status {
	case StatusLoading:
		return TextLoadingAdmin
	case StatusFailed:
		return TextAdminFailed
	default:
		return ""
	}
}

// LoadingChallenges is the challenge model while a fetch is in flight.
func LoadingChallenges() ChallengeList {
	return ChallengeList{Status: StatusLoading}
}

// LoadingScoreboard is the scoreboard model while a fetch is in flight.
func LoadingScoreboard() ScoreTable {
	return ScoreTable{Status: StatusLoading}
}

// LoadingAdmin is the admin model while a fetch is in flight.
func LoadingAdmin() AdminList {
	return AdminList{Status: StatusLoading}
}

// FailedAdmin is the admin model after a failed fetch.
func FailedAdmin() AdminList {
	return AdminList{Status: StatusFailed}
}

// RenderChallenges builds the challenges model. An empty input yields the
// explicit empty state, never an empty ready list.
func RenderChallenges(challenges []api.Challenge) ChallengeList {
	if len(challenges) == 0 {
		return ChallengeList{Status: StatusEmpty}
	}
	cards := make([]ChallengeCard, len(challenges))
	for i, c := range challenges {
		cards[i] = ChallengeCard{
			ID:          c.ID,
			Title:       c.Title,
			Category:    c.Category,
			Description: c.Description,
			Points:      c.Points,
		}
	}
	return ChallengeList{Status: StatusReady, Cards: cards}
}

// RenderScoreboard ranks entries by their position in the input.
func RenderScoreboard(entries []api.ScoreboardEntry) ScoreTable {
	rows := make([]ScoreRow, len(entries))
	for i, e := range entries {
		tier := TierActive
		if i < eliteRanks {
			tier = TierElite
		}
		rows[i] = ScoreRow{
			Rank:     i + 1,
			Username: e.Username,
			Admin:    e.IsAdmin,
			Score:    e.Score,
			Tier:     tier,
		}
	}
	status := StatusReady
	if len(rows) == 0 {
		status = StatusEmpty
	}
	return ScoreTable{Status: status, Rows: rows}
}

// RenderAdminList labels each challenge as "title (N pts)".
func RenderAdminList(challenges []api.Challenge) AdminList {
	items := make([]AdminItem, len(challenges))
	for i, c := range challenges {
		items[i] = AdminItem{ID: c.ID, Label: fmt.Sprintf("%s (%d pts)", c.Title, c.Points)}
	}
	return AdminList{Status: StatusReady, Items: items}
}
