// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/observability"
)

// Loader refreshes the data behind a view.
type Loader func(ctx context.Context)

// Dispatcher runs loaders as keyed background tasks.
type Dispatcher interface {
	Go(key string, fn func(ctx context.Context))
}

// Chrome is the navigation state around the views.
type Chrome struct {
	Navigation bool
	AdminEntry bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the controller logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithControllerMetrics counts view activations.
func WithControllerMetrics(m *observability.Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// Controller is the view router. Exactly one view is visible at a time.
type Controller struct {
	// showMu orders transitions so listeners observe them in the same
	// order as Current.
	showMu    sync.Mutex
	mu        sync.RWMutex
	current   View
	chrome    Chrome
	loaders   map[View]Loader
	listeners []func(View)
	tasks     Dispatcher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewController creates a controller showing the auth view.
func NewController(tasks Dispatcher, opts ...ControllerOption) (*Controller, error) {
	if tasks == nil {
		return nil, oops.Code("VIEW_INVALID").Errorf("task dispatcher is required")
	}
	c := &Controller{
		current: Auth,
		loaders: make(map[View]Loader),
		tasks:   tasks,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Register sets the loader run whenever v is shown.
func (c *Controller) Register(v View, load Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders[v] = load
}

// OnChange adds a listener called after every transition. Listeners run
// one transition at a time and must not call Show.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// LoadKey is the task key used for a view's loader.
func LoadKey(v View) string {
	return "load:" + string(v)
}

// Show makes v the only visible view and starts its loader without waiting
// for it. Showing the current view again reloads it.
func (c *Controller) Show(ctx context.Context, v View) {
	c.showMu.Lock()
	c.mu.Lock()
	c.current = v
	load := c.loaders[v]
	listeners := append([]func(View){}, c.listeners...)
	c.mu.Unlock()

	c.metrics.ViewChange(string(v))
	c.logger.DebugContext(ctx, "view shown", "view", string(v))

	for _, fn := range listeners {
		fn(v)
	}
	c.showMu.Unlock()

	if load != nil {
		c.tasks.Go(LoadKey(v), load)
	}
}

// Current returns the visible view.
func (c *Controller) Current() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Visible returns the set of visible views. It always has one element.
func (c *Controller) Visible() []View {
	return []View{c.Current()}
}

// IsVisible reports whether v is the visible view.
func (c *Controller) IsVisible(v View) bool {
	return c.Current() == v
}

// SetNavigation shows or hides the navigation bar.
func (c *Controller) SetNavigation(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chrome.Navigation = visible
}

// SetAdminEntry shows or hides the admin navigation entry.
func (c *Controller) SetAdminEntry(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chrome.AdminEntry = visible
}

// Chrome returns the navigation state.
func (c *Controller) Chrome() Chrome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chrome
}
