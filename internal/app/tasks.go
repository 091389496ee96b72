// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package app

import (
	"context"
	"log/slog"
	"sync"
)

// Tasks runs background operations keyed by name. Tasks are never
// cancelled by navigation; they run with the context given to NewTasks.
type Tasks struct {
	ctx      context.Context
	logger   *slog.Logger
	wg       sync.WaitGroup
	mu       sync.Mutex
	inFlight map[string]int
}

// NewTasks creates a tracker whose tasks run under ctx.
func NewTasks(ctx context.Context, logger *slog.Logger) *Tasks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tasks{
		ctx:      ctx,
		logger:   logger,
		inFlight: make(map[string]int),
	}
}

// Go starts fn in the background under key.
func (t *Tasks) Go(key string, fn func(ctx context.Context)) {
	t.mu.Lock()
	t.inFlight[key]++
	t.mu.Unlock()
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		defer t.finish(key)
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("task panicked", "task", key, "panic", r)
			}
		}()
		fn(t.ctx)
	}()
}

func (t *Tasks) finish(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight[key]--
	if t.inFlight[key] <= 0 {
		delete(t.inFlight, key)
	}
}

// InFlight returns how many tasks under key have not finished.
func (t *Tasks) InFlight(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight[key]
}

// Wait blocks until every started task has finished, including tasks
// started by other tasks before they returned.
func (t *Tasks) Wait() {
	t.wg.Wait()
}
