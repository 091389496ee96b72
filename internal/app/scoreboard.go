// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app

import (
	"context"

	"github.com/flagdeck/flagdeck/internal/view"
	"github.com/flagdeck/flagdeck/pkg/errutil"
)

// Scoreboard shows the ranked standings.
type Scoreboard struct {
	app *App
}

// Load fetches the standings and renders them in server order.
func (s *Scoreboard) Load(ctx context.Context) error {
	a := s.app
	a.screen.SetScoreboard(view.LoadingScoreboard())

	token := a.sentToken()
	entries, err := a.gw.Scoreboard(ctx)
	if err != nil {
		errutil.LogWarn(a.logger, "scoreboard load failed", err)
		if !a.rejectedSession(ctx, "load_scoreboard", token, err) {
			a.notifier.Error(MsgScoreboardFailed)
		}
		return err
	}

	a.screen.SetScoreboard(view.RenderScoreboard(entries))
	return nil
}
