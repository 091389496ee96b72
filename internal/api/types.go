// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package api

import "encoding/json"

// User is the authenticated principal returned by /users/me.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	Score    int    `json:"score,omitempty"`
}

// adminAlias picks up the camelCase admin flag some platform builds send.
type adminAlias struct {
	IsAdminCamel *bool `json:"isAdmin"`
}

func (a adminAlias) apply(flag *bool) {
	if a.IsAdminCamel != nil {
		*flag = *a.IsAdminCamel
	}
}

// UnmarshalJSON accepts both is_admin and isAdmin for the admin flag.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		adminAlias
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err //nolint:wrapcheck // decoding errors are wrapped by the gateway
	}
	aux.apply(&u.IsAdmin)
	return nil
}

// Challenge is a problem users can submit flags for.
type Challenge struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// ScoreboardEntry is one row of the server-ordered standings.
type ScoreboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	IsAdmin  bool   `json:"is_admin"`
}

// UnmarshalJSON accepts the same admin flag spellings as User.
func (e *ScoreboardEntry) UnmarshalJSON(data []byte) error {
	type plain ScoreboardEntry
	aux := struct {
		*plain
		adminAlias
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err //nolint:wrapcheck // decoding errors are wrapped by the gateway
	}
	aux.apply(&e.IsAdmin)
	return nil
}

// NewChallenge is the admin create payload.
type NewChallenge struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Category    string `json:"category"`
	Flag        string `json:"flag"`
}

// Credentials is the register payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by /token and /register.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Submission is the flag submission payload.
type Submission struct {
	ChallengeID int64  `json:"challenge_id"`
	Flag        string `json:"flag"`
}

// SubmitResult is the body of an accepted submission.
type SubmitResult struct {
	Message string `json:"message"`
	Points  int    `json:"points"`
}

// DeleteResult is the body of a successful delete.
type DeleteResult struct {
	OK bool `json:"ok"`
}
