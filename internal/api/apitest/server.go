// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

// Package apitest runs an in-process fake of the CTF platform for tests.
//
// The fake follows the platform's contract: HS256 bearer tokens, the first
// registered user becomes admin, admin-only challenge mutations, one solve
// per user and challenge, and a score-ordered scoreboard. Every request is
// recorded, and individual routes can be forced to fail or held open.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/flagdeck/flagdeck/internal/api"
)

// Request is one recorded request.
type Request struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

// Bearer returns the bearer token the request carried, if any.
func (r Request) Bearer() string {
	return strings.TrimPrefix(r.Authorization, "Bearer ")
}

type account struct {
	user     api.User
	password string
}

type challenge struct {
	api.Challenge
	flag string
}

type fault struct {
	status int
	body   string
}

// Server is the fake platform.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu         sync.Mutex
	accounts   map[string]*account
	nextUser   int64
	challenges []challenge
	nextChall  int64
	solved     map[int64]map[int64]bool
	requests   []Request
	faults     map[string]fault
	gates      map[string]chan struct{}
}

// TB is the part of testing.TB the fake needs. GinkgoT() satisfies it too.
type TB interface {
	Helper()
	Cleanup(func())
}

// NewServer starts a fake platform that is closed when t finishes.
func NewServer(t TB) *Server {
	t.Helper()
	s := &Server{
		secret:   []byte("apitest-secret"),
		accounts: make(map[string]*account),
		solved:   make(map[int64]map[int64]bool),
		faults:   make(map[string]fault),
		gates:    make(map[string]chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc(api.PathToken, s.handleToken).Methods(http.MethodPost)
	r.HandleFunc(api.PathRegister, s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc(api.PathCurrent, s.authed(s.handleCurrent)).Methods(http.MethodGet)
	r.HandleFunc(api.PathChallenges, s.authed(s.handleListChallenges)).Methods(http.MethodGet)
	r.HandleFunc(api.PathChallenges, s.admin(s.handleCreateChallenge)).Methods(http.MethodPost)
	r.HandleFunc(api.PathChallenges+"/{id:[0-9]+}", s.admin(s.handleDeleteChallenge)).Methods(http.MethodDelete)
	r.HandleFunc(api.PathSubmit, s.authed(s.handleSubmit)).Methods(http.MethodPost)
	r.HandleFunc(api.PathScoreboard, s.handleScoreboard).Methods(http.MethodGet)

	s.srv = httptest.NewServer(s.intercept(r))
	t.Cleanup(s.Close)
	return s
}

// URL is the platform root.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the server down, releasing any held requests first.
func (s *Server) Close() {
	s.mu.Lock()
	for key, gate := range s.gates {
		close(gate)
		delete(s.gates, key)
	}
	s.mu.Unlock()
	s.srv.Close()
}

// AddUser creates an account and returns it.
func (s *Server) AddUser(username, password string, admin bool) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, admin)
}

func (s *Server) addUserLocked(username, password string, admin bool) api.User {
	s.nextUser++
	acc := &account{
		user:     api.User{ID: s.nextUser, Username: username, IsAdmin: admin},
		password: password,
	}
	s.accounts[username] = acc
	return acc.user
}

// TokenFor mints a valid token for username.
func (s *Server) TokenFor(username string) string {
	return s.mint(username, time.Now().Add(time.Hour))
}

// ExpiredTokenFor mints a token for username whose exp is in the past.
func (s *Server) ExpiredTokenFor(username string) string {
	return s.mint(username, time.Now().Add(-time.Hour))
}

func (s *Server) mint(username string, exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"exp": exp.Unix(),
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// AddChallenge stores a challenge with its flag.
func (s *Server) AddChallenge(c api.NewChallenge) api.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addChallengeLocked(c)
}

func (s *Server) addChallengeLocked(c api.NewChallenge) api.Challenge {
	s.nextChall++
	stored := challenge{
		Challenge: api.Challenge{
			ID:          s.nextChall,
			Title:       c.Title,
			Category:    c.Category,
			Description: c.Description,
			Points:      c.Points,
		},
		flag: c.Flag,
	}
	s.challenges = append(s.challenges, stored)
	return stored.Challenge
}

// Challenges returns the stored challenges.
func (s *Server) Challenges() []api.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Challenge, 0, len(s.challenges))
	for _, c := range s.challenges {
		out = append(out, c.Challenge)
	}
	return out
}

// Fail makes every request to method+path answer status with the raw body.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = fault{status: status, body: body}
}

// Recover removes a fault installed by Fail.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, method+" "+path)
}

// Hold blocks requests to method+path until the returned release func is called.
func (s *Server) Hold(method, path string) (release func()) {
	gate := make(chan struct{})
	key := method + " " + path
	s.mu.Lock()
	s.gates[key] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[key] == gate {
				delete(s.gates, key)
				close(gate)
			}
			s.mu.Unlock()
		})
	}
}

// Requests returns every recorded request in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests hit method+path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		})
		gate := s.gates[key]
		f, failing := s.faults[key]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, acc *account)

func (s *Server) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, ok := s.authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h(w, r, acc)
	}
}

func (s *Server) admin(h userHandler) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request, acc *account) {
		if !acc.user.IsAdmin {
			writeDetail(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		h(w, r, acc)
	})
}

func (s *Server) authenticate(r *http.Request) (*account, bool) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return nil, false
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, false
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[sub]
	return acc, ok
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	username := r.PostForm.Get("username")
	s.mu.Lock()
	acc, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok || acc.password != r.PostForm.Get("password") {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: s.TokenFor(username), TokenType: "bearer"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		writeValidation(w, "field required")
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[creds.Username]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	s.addUserLocked(creds.Username, creds.Password, len(s.accounts) == 0)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: s.TokenFor(creds.Username), TokenType: "bearer"})
}

func (s *Server) handleCurrent(w http.ResponseWriter, _ *http.Request, acc *account) {
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) handleListChallenges(w http.ResponseWriter, _ *http.Request, _ *account) {
	writeJSON(w, http.StatusOK, s.Challenges())
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request, _ *account) {
	var c api.NewChallenge
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Title == "" || c.Flag == "" {
		writeValidation(w, "field required")
		return
	}
	writeJSON(w, http.StatusOK, s.AddChallenge(c))
}

func (s *Server) handleDeleteChallenge(w http.ResponseWriter, r *http.Request, _ *account) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.challenges {
		if c.ID == id {
			s.challenges = append(s.challenges[:i], s.challenges[i+1:]...)
			writeJSON(w, http.StatusOK, api.DeleteResult{OK: true})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Challenge not found")
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, acc *account) {
	var sub api.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeValidation(w, "value is not a valid integer")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.solved[acc.user.ID][sub.ChallengeID] {
		writeDetail(w, http.StatusBadRequest, "Already solved")
		return
	}
	var target *challenge
	for i := range s.challenges {
		if s.challenges[i].ID == sub.ChallengeID {
			target = &s.challenges[i]
			break
		}
	}
	if target == nil {
		writeDetail(w, http.StatusNotFound, "Challenge not found")
		return
	}
	if sub.Flag != target.flag {
		writeDetail(w, http.StatusBadRequest, "Incorrect flag")
		return
	}
	if s.solved[acc.user.ID] == nil {
		s.solved[acc.user.ID] = make(map[int64]bool)
	}
	s.solved[acc.user.ID][sub.ChallengeID] = true
	writeJSON(w, http.StatusOK, api.SubmitResult{Message: "Correct!", Points: target.Points})
}

func (s *Server) handleScoreboard(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	points := make(map[int64]int, len(s.challenges))
	for _, c := range s.challenges {
		points[c.ID] = c.Points
	}
	entries := make([]api.ScoreboardEntry, 0, len(s.accounts))
	ids := make([]int64, 0, len(s.accounts))
	for _, acc := range s.accounts {
		score := 0
		for cid := range s.solved[acc.user.ID] {
			score += points[cid]
		}
		entries = append(entries, api.ScoreboardEntry{Username: acc.user.Username, Score: score, IsAdmin: acc.user.IsAdmin})
		ids = append(ids, acc.user.ID)
	}
	s.mu.Unlock()

	// Registration order breaks ties so the output is deterministic.
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := entries[order[a]], entries[order[b]]
		if ea.Score != eb.Score {
			return ea.Score > eb.Score
		}
		return ids[order[a]] < ids[order[b]]
	})
	sorted := make([]api.ScoreboardEntry, len(order))
	for i, idx := range order {
		sorted[i] = entries[idx]
	}
	writeJSON(w, http.StatusOK, sorted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body"}, "msg": msg, "type": "value_error"}},
	})
}

// FormValue decodes a recorded form body field.
func FormValue(r Request, key string) string {
	values, err := url.ParseQuery(string(r.Body))
	if err != nil {
		return ""
	}
	return values.Get(key)
}
