// Package client implements the field client of the SERO-EST API: the HTTP
// calls, the locally persisted session and the interactive prompts.
package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/thunderdz19/sero-est/internal/access"
	"github.com/thunderdz19/sero-est/internal/models"
)

// DefaultSessionFile is where the client keeps its current-user slot.
const DefaultSessionFile = "sero-est-session.json"

// Session is the login kept between client runs.
type Session struct {
	Token     string       `json:"token"`
	User      models.User  `json:"user"`
	Tabs      []access.Tab `json:"tabs"`
	MainAdmin bool         `json:"mainAdmin"`
}

// SessionStore persists one Session as a JSON file.
type SessionStore struct {
	Path string

	mu      sync.Mutex
	current *Session
}

// NewSessionStore returns a store backed by path.
func NewSessionStore(path string) *SessionStore {
	if path == "" {
		path = DefaultSessionFile
	}
	return &SessionStore{Path: path}
}

// Load reads the file. A missing file means no session.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.current = nil
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var sess Session
	if err := json.NewDecoder(f).Decode(&sess); err != nil {
		return nil, err
	}
	if sess.Token == "" {
		return nil, errors.New("session file has no token")
	}
	s.current = &sess
	return s.current, nil
}

// Current returns the loaded session or nil.
func (s *SessionStore) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Save replaces the stored session.
func (s *SessionStore) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(sess); err != nil {
		return err
	}
	s.current = &sess
	return nil
}

// Clear removes the stored session.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
