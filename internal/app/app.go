// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/notify"
	"github.com/flagdeck/flagdeck/internal/observability"
	"github.com/flagdeck/flagdeck/internal/session"
	"github.com/flagdeck/flagdeck/internal/view"
	"github.com/flagdeck/flagdeck/pkg/errutil"
)

// Gateway is the subset of the platform API the coordinator uses.
type Gateway interface {
	session.UserFetcher
	IssueToken(ctx context.Context, username, password string) (api.TokenResponse, error)
	Register(ctx context.Context, creds api.Credentials) (api.TokenResponse, error)
	ListChallenges(ctx context.Context) ([]api.Challenge, error)
	CreateChallenge(ctx context.Context, c api.NewChallenge) (api.Challenge, error)
	DeleteChallenge(ctx context.Context, id int64) error
	SubmitFlag(ctx context.Context, id int64, flag string) (api.SubmitResult, error)
	Scoreboard(ctx context.Context) ([]api.ScoreboardEntry, error)
}

// Notifier shows transient messages.
type Notifier interface {
	Success(message string) notify.Notification
	Error(message string) notify.Notification
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Deps are the collaborators of an App.
type Deps struct {
	Gateway   Gateway
	Session   *session.Store
	Notifier  Notifier
	Screen    *view.Screen
	Tasks     *Tasks
	Confirmer Confirmer
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// App is the session and view coordinator.
type App struct {
	gw       Gateway
	session  *session.Store
	notifier Notifier
	screen   *view.Screen
	tasks    *Tasks
	views    *view.Controller
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	Challenges *ChallengeBoard
	Scores     *Scoreboard
	Admin      *AdminPanel
}

// New wires an App and registers the view loaders.
func New(deps Deps) (*App, error) {
	switch {
	case deps.Gateway == nil:
		return nil, oops.Code(CodeInvalidDeps).Errorf("gateway is required")
	case deps.Session == nil:
		return nil, oops.Code(CodeInvalidDeps).Errorf("session store is required")
	case deps.Notifier == nil:
		return nil, oops.Code(CodeInvalidDeps).Errorf("notifier is required")
	case deps.Screen == nil:
		return nil, oops.Code(CodeInvalidDeps).Errorf("screen is required")
	case deps.Tasks == nil:
		return nil, oops.Code(CodeInvalidDeps).Errorf("task tracker is required")
	case deps.Confirmer == nil:
		return nil, oops.Code(CodeInvalidDeps).Errorf("confirmer is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	views, err := view.NewController(deps.Tasks,
		view.WithControllerLogger(logger),
		view.WithControllerMetrics(deps.Metrics),
	)
	if err != nil {
		return nil, err
	}

	a := &App{
		gw:       deps.Gateway,
		session:  deps.Session,
		notifier: deps.Notifier,
		screen:   deps.Screen,
		tasks:    deps.Tasks,
		views:    views,
		logger:   logger,
		metrics:  deps.Metrics,
	}
	a.Challenges = &ChallengeBoard{app: a}
	a.Scores = &Scoreboard{app: a}
	a.Admin = &AdminPanel{app: a, confirm: deps.Confirmer}

	views.Register(view.Challenges, func(ctx context.Context) { _ = a.Challenges.Load(ctx) })
	views.Register(view.Scoreboard, func(ctx context.Context) { _ = a.Scores.Load(ctx) })
	views.Register(view.Admin, func(ctx context.Context) { _ = a.Admin.Load(ctx) })

	return a, nil
}

// Views returns the view controller.
func (a *App) Views() *view.Controller {
	return a.views
}

// Screen returns the presentation state.
func (a *App) Screen() *view.Screen {
	return a.screen
}

// Session returns a snapshot of the session.
func (a *App) Session() session.Session {
	return a.session.Snapshot()
}

// Ready reports whether Bootstrap has completed at least once.
func (a *App) Ready() bool {
	return a.ready.Load()
}

// Wait blocks until all background loads have finished.
func (a *App) Wait() {
	a.tasks.Wait()
}

// reload runs v's loader as a tracked task, as entering the view would,
// without changing the visible view.
func (a *App) reload(v view.View, load func(ctx context.Context) error) {
	a.tasks.Go(view.LoadKey(v), func(ctx context.Context) { _ = load(ctx) })
}

// sentToken is the token an authenticated request is about to carry.
func (a *App) sentToken() string {
	token, _ := a.session.Token()
	return token
}

// rejectedSession handles a 401 on an authenticated request that carried
// token. It reports whether err was a 401. The session is demoted only while
// it still holds token; a 401 for a token that a newer login replaced is
// dropped without a notification.
func (a *App) rejectedSession(ctx context.Context, op, token string, err error) bool {
	if !api.IsUnauthorized(err) {
		return false
	}
	cleared, clearErr := a.session.ClearIfCurrent(token)
	if clearErr != nil {
		errutil.LogWarn(a.logger, "failed to clear session token", clearErr)
	}
	if !cleared {
		a.logger.InfoContext(ctx, "ignoring rejection of a replaced session", "operation", op)
		return true
	}
	a.logger.InfoContext(ctx, "session rejected by platform", "operation", op)
	a.metrics.SessionEvent("expired")
	a.showAuth(ctx)
	a.notifier.Error(MsgSessionExpired)
	return true
}
