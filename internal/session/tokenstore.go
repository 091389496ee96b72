// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/flagdeck/flagdeck/internal/xdg"
)

// TokenStore persists the session token across runs.
// Load returns "" with no error when nothing is stored.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single 0600 file.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore returns a store writing to path.
// An empty path selects the default XDG state location.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		p, err := xdg.TokenFile()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &FileTokenStore{path: path}, nil
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the stored token.
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", oops.Code("TOKEN_STORE").With("path", s.path).Wrapf(err, "read token")
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token atomically with owner-only permissions.
func (s *FileTokenStore) Save(token string) error {
	if err := xdg.EnsureDir(filepath.Dir(s.path)); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token+"\n"), 0o600); err != nil {
		return oops.Code("TOKEN_STORE").With("path", s.path).Wrapf(err, "write token")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return oops.Code("TOKEN_STORE").With("path", s.path).Wrapf(err, "replace token")
	}
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("TOKEN_STORE").With("path", s.path).Wrapf(err, "remove token")
	}
	return nil
}

// MemoryTokenStore keeps the token for the life of the process.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore returns a store seeded with token.
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

// Load returns the held token.
func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// Save replaces the held token.
func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear forgets the token.
func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
