// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app

import (
	"context"

	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/view"
	"github.com/flagdeck/flagdeck/pkg/errutil"
)

// AdminPanel creates and deletes challenges. Hiding it from non-admins is
// cosmetic; the platform rejects unauthorized calls on its own.
type AdminPanel struct {
	app     *App
	confirm Confirmer
}

// Load fetches the challenges for the admin list. A failure shows the
// failed list state instead of a notification.
func (p *AdminPanel) Load(ctx context.Context) error {
	a := p.app
	a.screen.SetAdmin(view.LoadingAdmin())

	token := a.sentToken()
	challenges, err := a.gw.ListChallenges(ctx)
	if err != nil {
		errutil.LogWarn(a.logger, "admin list load failed", err)
		a.screen.SetAdmin(view.FailedAdmin())
		a.rejectedSession(ctx, "load_admin", token, err)
		return err
	}

	a.screen.SetAdmin(view.RenderAdminList(challenges))
	return nil
}

// Create posts a new challenge. On success the form is reset and the list
// reloads in the background.
func (p *AdminPanel) Create(ctx context.Context, c api.NewChallenge) (api.Challenge, error) {
	a := p.app

	token := a.sentToken()
	created, err := a.gw.CreateChallenge(ctx, c)
	if err != nil {
		errutil.LogWarn(a.logger, "challenge create failed", err, "title", c.Title)
		if a.rejectedSession(ctx, "create_challenge", token, err) {
			return api.Challenge{}, err
		}
		msg := MsgCreateFailed
		if reqErr, ok := api.AsRequestError(err); ok && reqErr.Provided {
			msg += ": " + reqErr.Detail
		}
		a.notifier.Error(msg)
		return api.Challenge{}, err
	}

	a.logger.InfoContext(ctx, "challenge created", "challenge_id", created.ID, "title", created.Title)
	a.notifier.Success(MsgCreated)
	a.screen.ResetForm()
	a.reload(view.Admin, p.Load)
	return created, nil
}

// CreateFromForm validates the screen's form and creates the challenge.
func (p *AdminPanel) CreateFromForm(ctx context.Context) (api.Challenge, error) {
	c, err := p.app.screen.Form().Challenge()
	if err != nil {
		p.app.notifier.Error(MsgCreateFailed + ": " + UserMessage(err))
		return api.Challenge{}, err
	}
	return p.Create(ctx, c)
}

// Delete removes challenge id after the user confirms. Declining sends no
// request and returns an error with code DECLINED.
func (p *AdminPanel) Delete(ctx context.Context, id int64) error {
	a := p.app

	if !p.confirm.Confirm(ctx, MsgConfirmDelete) {
		a.logger.DebugContext(ctx, "challenge delete declined", "challenge_id", id)
		return oops.Code(CodeDeclined).With("challenge_id", id).Errorf("delete not confirmed")
	}

	token := a.sentToken()
	if err := a.gw.DeleteChallenge(ctx, id); err != nil {
		errutil.LogWarn(a.logger, "challenge delete failed", err, "challenge_id", id)
		if a.rejectedSession(ctx, "delete_challenge", token, err) {
			return err
		}
		if _, ok := api.AsNetworkError(err); ok {
			a.notifier.Error(MsgDeleteNetworkFailed)
		} else {
			a.notifier.Error(MsgDeleteFailed)
		}
		return err
	}

	a.logger.InfoContext(ctx, "challenge deleted", "challenge_id", id)
	a.notifier.Success(MsgDeleted)
	a.reload(view.Admin, p.Load)
	return nil
}
