// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package view_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/view"
)

func TestRenderChallenges_EmptyStateIsExplicit(t *testing.T) {
	for _, in := range [][]api.Challenge{nil, {}} {
		got := view.RenderChallenges(in)

		assert.Equal(t, view.StatusEmpty, got.Status)
		assert.Empty(t, got.Cards)
		assert.Equal(t, "No active challenges found.", got.Placeholder())
		assert.NotEqual(t, view.LoadingChallenges().Placeholder(), got.Placeholder())
	}
}

func TestRenderChallenges_Cards(t *testing.T) {
	got := view.RenderChallenges([]api.Challenge{
		{ID: 3, Title: "SQLi 101", Category: "web", Description: "find it", Points: 100},
		{ID: 9, Title: "XOR", Category: "crypto", Points: 250},
	})

	assert.Equal(t, view.StatusReady, got.Status)
	assert.Empty(t, got.Placeholder())
	require.Len(t, got.Cards, 2)
	assert.Equal(t, view.ChallengeCard{ID: 3, Title: "SQLi 101", Category: "web", Description: "find it", Points: 100}, got.Cards[0])
	assert.EqualValues(t, 9, got.Cards[1].ID)
}

func TestRenderScoreboard_RanksAndTiers(t *testing.T) {
	entries := []api.ScoreboardEntry{
		{Username: "alice", Score: 500},
		{Username: "root", Score: 400, IsAdmin: true},
		{Username: "bob", Score: 400},
		{Username: "carol", Score: 10},
		{Username: "dave", Score: 0},
	}

	got := view.RenderScoreboard(entries)

	require.Len(t, got.Rows, 5)
	for i, row := range got.Rows {
		assert.Equal(t, i+1, row.Rank)
		assert.Equal(t, entries[i].Username, row.Username, "server order is preserved")
	}
	assert.Equal(t, "#1", got.Rows[0].RankLabel())
	assert.True(t, got.Rows[1].Admin)
	assert.Equal(t, []string{"ELITE", "ELITE", "ELITE", "ACTIVE", "ACTIVE"},
		[]string{got.Rows[0].Tier, got.Rows[1].Tier, got.Rows[2].Tier, got.Rows[3].Tier, got.Rows[4].Tier})
}

func TestRenderScoreboard_TiesKeepPosition(t *testing.T) {
	got := view.RenderScoreboard([]api.ScoreboardEntry{
		{Username: "a", Score: 100},
		{Username: "b", Score: 100},
	})

	assert.Equal(t, 1, got.Rows[0].Rank)
	assert.Equal(t, 2, got.Rows[1].Rank)
}

func TestRenderScoreboard_Placeholders(t *testing.T) {
	assert.Equal(t, "Calculating...", view.LoadingScoreboard().Placeholder())
	assert.Empty(t, view.RenderScoreboard(nil).Placeholder())
}

func TestRenderAdminList(t *testing.T) {
	got := view.RenderAdminList([]api.Challenge{{ID: 7, Title: "Warmup", Points: 50}})

	assert.Equal(t, view.StatusReady, got.Status)
	assert.Equal(t, []view.AdminItem{{ID: 7, Label: "Warmup (50 pts)"}}, got.Items)
}

func TestAdminList_Placeholders(t *testing.T) {
	assert.Equal(t, "Loading...", view.LoadingAdmin().Placeholder())
	assert.Equal(t, "Error loading challenges", view.FailedAdmin().Placeholder())
	assert.Empty(t, view.RenderAdminList(nil).Placeholder())
}
