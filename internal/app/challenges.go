// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app

import (
	"context"
	"fmt"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/view"
	"github.com/flagdeck/flagdeck/pkg/errutil"
)

// ChallengeBoard lists challenges and submits flags.
type ChallengeBoard struct {
	app *App
}

// Load fetches the challenges and renders them.
func (b *ChallengeBoard) Load(ctx context.Context) error {
	a := b.app
	a.screen.SetChallenges(view.LoadingChallenges())

	token := a.sentToken()
	challenges, err := a.gw.ListChallenges(ctx)
	if err != nil {
		errutil.LogWarn(a.logger, "challenge load failed", err)
		if !a.rejectedSession(ctx, "load_challenges", token, err) {
			a.notifier.Error(MsgChallengesFailed)
		}
		return err
	}

	a.screen.SetChallenges(view.RenderChallenges(challenges))
	return nil
}

// Submit sends a flag for challenge id. The challenge list is left as is:
// nothing is marked solved and concurrent submissions are not merged.
func (b *ChallengeBoard) Submit(ctx context.Context, id int64, flag string) (api.SubmitResult, error) {
	a := b.app

	token := a.sentToken()
	res, err := a.gw.SubmitFlag(ctx, id, flag)
	if err != nil {
		errutil.LogWarn(a.logger, "flag submission failed", err, "challenge_id", id)
		if a.rejectedSession(ctx, "submit", token, err) {
			return api.SubmitResult{}, err
		}
		a.notifier.Error(submitFailure(err))
		return api.SubmitResult{}, err
	}

	a.logger.InfoContext(ctx, "flag accepted", "challenge_id", id, "points", res.Points)
	a.notifier.Success(fmt.Sprintf(MsgCorrectFmt, res.Points))
	return res, nil
}

func submitFailure(err error) string {
	if reqErr, ok := api.AsRequestError(err); ok {
		if reqErr.Provided {
			return reqErr.Detail
		}
		return MsgSubmitFailed
	}
	if _, ok := api.AsNetworkError(err); ok {
		return MsgSubmitNetworkFailed
	}
	return MsgSubmitFailed
}
