// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/api/apitest"
	"github.com/flagdeck/flagdeck/internal/app"
	"github.com/flagdeck/flagdeck/internal/notify"
	"github.com/flagdeck/flagdeck/internal/session"
	"github.com/flagdeck/flagdeck/internal/view"
)

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context, prompt string) bool {
	args := m.Called(ctx, prompt)
	return args.Bool(0)
}

// harness wires a real coordinator to the fake platform.
type harness struct {
	srv     *apitest.Server
	durable *session.MemoryTokenStore
	store   *session.Store
	notes   *notify.Center
	confirm *mockConfirmer
	app     *app.App
}

type cleanupT interface {
	apitest.TB
	Errorf(format string, args ...any)
	FailNow()
}

func newHarness(t cleanupT, token string, ttl time.Duration) *harness {
	t.Helper()
	srv := apitest.NewServer(t)
	h := &harness{srv: srv}
	h.build(t, token, ttl)
	return h
}

// build (re)creates the client side against the same fake platform.
func (h *harness) build(t cleanupT, token string, ttl time.Duration) {
	h.durable = session.NewMemoryTokenStore(token)
	store, err := session.NewStore(h.durable)
	if err != nil {
		t.Errorf("session store: %v", err)
		t.FailNow()
	}
	gw, err := api.New(api.Config{BaseURL: h.srv.URL(), Timeout: 5 * time.Second}, store)
	if err != nil {
		t.Errorf("gateway: %v", err)
		t.FailNow()
	}
	h.store = store
	h.notes = notify.NewCenter(notify.WithTTL(ttl))
	t.Cleanup(h.notes.Close)
	h.confirm = &mockConfirmer{}
	h.app, err = app.New(app.Deps{
		Gateway:   gw,
		Session:   store,
		Notifier:  h.notes,
		Screen:    view.NewScreen(),
		Tasks:     app.NewTasks(context.Background(), nil),
		Confirmer: h.confirm,
	})
	if err != nil {
		t.Errorf("app: %v", err)
		t.FailNow()
	}
}

func (h *harness) messages() []string {
	var out []string
	for _, n := range h.notes.Active() {
		out = append(out, string(n.Kind)+": "+n.Message)
	}
	return out
}
