// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package api

import (
	"context"
	"net/url"
	"strconv"
)

// Platform paths.
const (
	PathToken      = "/token"
	PathRegister   = "/register"
	PathCurrent    = "/users/me"
	PathChallenges = "/challenges"
	PathSubmit     = "/submit"
	PathScoreboard = "/scoreboard"
)

// IssueToken exchanges credentials for a bearer token.
func (g *Gateway) IssueToken(ctx context.Context, username, password string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok TokenResponse
	err := g.PostForm(ctx, PathToken, form, false, &tok)
	return tok, err
}

// Register creates an account and returns its first token.
func (g *Gateway) Register(ctx context.Context, creds Credentials) (TokenResponse, error) {
	var tok TokenResponse
	err := g.PostJSON(ctx, PathRegister, creds, false, &tok)
	return tok, err
}

// CurrentUser returns the user the session token belongs to.
func (g *Gateway) CurrentUser(ctx context.Context) (User, error) {
	var user User
	err := g.Get(ctx, PathCurrent, true, &user)
	return user, err
}

// ListChallenges returns every active challenge.
func (g *Gateway) ListChallenges(ctx context.Context) ([]Challenge, error) {
	var challenges []Challenge
	if err := g.Get(ctx, PathChallenges, true, &challenges); err != nil {
		return nil, err
	}
	if challenges == nil {
		challenges = []Challenge{}
	}
	return challenges, nil
}

// CreateChallenge creates a challenge. Requires an admin session.
func (g *Gateway) CreateChallenge(ctx context.Context, c NewChallenge) (Challenge, error) {
	var created Challenge
	err := g.PostJSON(ctx, PathChallenges, c, true, &created)
	return created, err
}

// DeleteChallenge deletes a challenge by id. Requires an admin session.
func (g *Gateway) DeleteChallenge(ctx context.Context, id int64) error {
	var res DeleteResult
	return g.Delete(ctx, ChallengePath(id), true, &res)
}

// SubmitFlag submits a flag for a challenge.
func (g *Gateway) SubmitFlag(ctx context.Context, id int64, flag string) (SubmitResult, error) {
	var res SubmitResult
	err := g.PostJSON(ctx, PathSubmit, Submission{ChallengeID: id, Flag: flag}, true, &res)
	return res, err
}

// Scoreboard returns the standings in server order.
func (g *Gateway) Scoreboard(ctx context.Context) ([]ScoreboardEntry, error) {
	var entries []ScoreboardEntry
	if err := g.Get(ctx, PathScoreboard, true, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []ScoreboardEntry{}
	}
	return entries, nil
}

// ChallengePath is the resource path of one challenge.
func ChallengePath(id int64) string {
	return PathChallenges + "/" + strconv.FormatInt(id, 10)
}
