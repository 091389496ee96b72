// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app

import (
	"context"
	"fmt"

	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/session"
	"github.com/flagdeck/flagdeck/internal/view"
	"github.com/flagdeck/flagdeck/pkg/errutil"
)

// Bootstrap decides the initial view from the stored token.
// Without a token the auth view is shown. With one, the token is validated:
// success shows the challenges with navigation (and the admin entry for
// admins); failure logs out. Bootstrap never notifies.
func (a *App) Bootstrap(ctx context.Context) error {
	defer a.ready.Store(true)

	if _, ok := a.session.Token(); !ok {
		a.showAuth(ctx)
		return nil
	}

	user, err := a.Restore(ctx)
	if err != nil {
		return err
	}

	a.views.SetNavigation(true)
	a.views.SetAdminEntry(user.IsAdmin)
	a.views.Show(ctx, view.Challenges)
	a.logger.DebugContext(ctx, "session restored", "username", user.Username)
	return nil
}

// Restore validates the stored token without changing the view on success.
// A missing, expired or rejected token returns to the auth view; the store
// has already dropped it.
func (a *App) Restore(ctx context.Context) (api.User, error) {
	user, err := a.session.Validate(ctx, a.gw)
	if err != nil {
		if authErr, ok := session.AsAuthError(err); ok && authErr.Reason == session.ReasonSuperseded {
			// A newer login owns the session now and runs its own bootstrap.
			return api.User{}, err
		}
		a.logger.InfoContext(ctx, "stored session is not valid", "error", err)
		a.showAuth(ctx)
		return api.User{}, err
	}
	return user, nil
}

// Login exchanges credentials for a token and re-runs Bootstrap.
// Failure leaves the session untouched.
func (a *App) Login(ctx context.Context, username, password string) error {
	tok, err := a.gw.IssueToken(ctx, username, password)
	if err != nil {
		errutil.LogWarn(a.logger, "login failed", err, "username", username)
		a.notifier.Error(MsgAccessDenied)
		return err
	}
	return a.startSession(ctx, tok, MsgAccessGranted, "login")
}

// Register creates an account and behaves like Login on success.
func (a *App) Register(ctx context.Context, creds api.Credentials) error {
	tok, err := a.gw.Register(ctx, creds)
	if err != nil {
		errutil.LogWarn(a.logger, "registration failed", err, "username", creds.Username)
		reason := MsgUsernameTaken
		if reqErr, ok := api.AsRequestError(err); ok && reqErr.Provided {
			reason = reqErr.Detail
		}
		a.notifier.Error(fmt.Sprintf(MsgRegisterFailedFmt, reason))
		return err
	}
	return a.startSession(ctx, tok, MsgRegistered, "register")
}

func (a *App) startSession(ctx context.Context, tok api.TokenResponse, message, event string) error {
	if err := a.session.SetToken(tok.AccessToken); err != nil {
		// The token is live in memory; only persistence failed.
		errutil.LogWarn(a.logger, "failed to persist session token", err)
	}
	a.metrics.SessionEvent(event)
	a.notifier.Success(message)
	return a.Bootstrap(ctx)
}

// Logout clears the session and returns to the auth view. It never calls
// the platform and is safe to repeat.
func (a *App) Logout(ctx context.Context) {
	if err := a.session.Clear(); err != nil {
		errutil.LogWarn(a.logger, "failed to clear session token", err)
	}
	a.metrics.SessionEvent("logout")
	a.showAuth(ctx)
}

func (a *App) showAuth(ctx context.Context) {
	a.views.SetNavigation(false)
	a.views.SetAdminEntry(false)
	a.views.Show(ctx, view.Auth)
}

// Navigate shows v. Views other than auth need the navigation bar, which is
// only visible with a validated session.
func (a *App) Navigate(ctx context.Context, v view.View) error {
	if v != view.Auth && !a.views.Chrome().Navigation {
		return oops.Code(CodeNavigationHidden).With("view", string(v)).Errorf("navigation is hidden")
	}
	a.views.Show(ctx, v)
	return nil
}

// SetAuthMode switches the auth view between the login and register forms.
func (a *App) SetAuthMode(m view.AuthMode) {
	a.screen.SetAuthMode(m)
}
