// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/api"
)

// UserFetcher resolves the user behind the current token.
type UserFetcher interface {
	CurrentUser(ctx context.Context) (api.User, error)
}

// Session is a point-in-time copy of the store.
type Session struct {
	Token string
	User  *api.User
}

// Authenticated reports whether the session holds a validated user.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store holds the session. User is set only while a token is set.
type Store struct {
	mu sync.RWMutex
	// writeMu orders memory and durable updates so the token file always
	// matches the last writer.
	writeMu sync.Mutex
	durable TokenStore
	token   string
	user    *api.User
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates a Store and loads any persisted token.
func NewStore(durable TokenStore, opts ...Option) (*Store, error) {
	if durable == nil {
		return nil, oops.Code("SESSION_INVALID").Errorf("token store is required")
	}
	s := &Store{
		durable: durable,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	token, err := durable.Load()
	if err != nil {
		// An unreadable token file is treated as no session.
		s.logger.Warn("ignoring unreadable session token", "error", err)
		token = ""
	}
	s.token = token
	return s, nil
}

// Token returns the current token.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// User returns the validated user.
func (s *Store) User() (api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return api.User{}, false
	}
	return *s.user, true
}

// Snapshot returns a copy of the session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Session{Token: s.token}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// SetToken stores a new token and forgets the previous user.
// The in-memory token is updated even when persisting fails.
func (s *Store) SetToken(token string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()

	if err := s.durable.Save(token); err != nil {
		return oops.Code("SESSION_PERSIST").Wrap(err)
	}
	s.logger.Debug("session token stored")
	return nil
}

// Clear drops the token and user. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	return s.clearDurable()
}

// ClearIfCurrent clears the session only while it still holds token. It
// reports false, touching nothing, when another login replaced the token.
func (s *Store) ClearIfCurrent(token string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return false, nil
	}
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	return true, s.clearDurable()
}

func (s *Store) clearDurable() error {
	if err := s.durable.Clear(); err != nil {
		return oops.Code("SESSION_PERSIST").Wrap(err)
	}
	return nil
}

// Validate fetches the user for the current token and stores it.
// Any failure clears the session and returns an *AuthError with code
// AUTH_FAILED. When the token was replaced while the fetch was in flight the
// reason is ReasonSuperseded and the newer token is left in place, whether
// the fetch succeeded or not.
func (s *Store) Validate(ctx context.Context, fetcher UserFetcher) (api.User, error) {
	token, ok := s.Token()
	if !ok {
		return api.User{}, s.fail(token, ReasonMissing, nil)
	}
	if s.expired(token) {
		return api.User{}, s.fail(token, ReasonExpired, nil)
	}

	user, err := fetcher.CurrentUser(ctx)
	if err != nil {
		return api.User{}, s.fail(token, ReasonRejected, err)
	}

	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return api.User{}, authError(ReasonSuperseded, nil)
	}
	u := user
	s.user = &u
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session validated", "username", user.Username, "is_admin", user.IsAdmin)
	return user, nil
}

// fail clears the session that held token. A session that moved on to
// another token is left alone and the failure is reported as superseded.
func (s *Store) fail(token string, reason Reason, cause error) error {
	cleared, err := s.ClearIfCurrent(token)
	if err != nil {
		s.logger.Warn("failed to clear session", "error", err)
	}
	if !cleared {
		s.logger.Debug("stale validation ignored", "reason", string(reason))
		return authError(ReasonSuperseded, cause)
	}
	return authError(reason, cause)
}

func authError(reason Reason, cause error) error {
	return oops.Code(CodeAuthFailed).
		With("reason", string(reason)).
		Wrap(&AuthError{Reason: reason, Err: cause})
}

// expired peeks at a JWT exp claim without verifying the signature.
// Opaque tokens and tokens without exp are never considered expired here.
func (s *Store) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(s.now())
}
