// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// # Local Session

// LocalSession is the token material held by a device.
type LocalSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

// Expired reports whether the access token is past its lifetime at now.
func (session LocalSession) Expired(now time.Time) bool {
	return !session.ExpiresAt.IsZero() && !now.Before(session.ExpiresAt)
}

// TokenStore persists the device session.
//
// Load reports found=false when no session is stored.
type TokenStore interface {
	Save(session LocalSession) error
	Load() (session LocalSession, found bool, err error)
	Clear() error
}

// # File Store

const (
	sessionDirPerm  fs.FileMode = 0o700
	sessionFilePerm fs.FileMode = 0o600
)

// FileStore keeps the session in a JSON file readable only by the owner.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSessionPath returns the per-user session file location.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session_path_failed: %w", err)
	}
	return filepath.Join(dir, "jetstream", "session.json"), nil
}

// Save writes the session atomically through a temporary file.
func (store *FileStore) Save(session LocalSession) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	dir := filepath.Dir(store.path)
	if err := os.MkdirAll(dir, sessionDirPerm); err != nil {
		return fmt.Errorf("session_dir_failed: %w", err)
	}
	// MkdirAll keeps the mode of an existing directory
	if err := os.Chmod(dir, sessionDirPerm); err != nil {
		return fmt.Errorf("session_dir_failed: %w", err)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session_encode_failed: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("session_write_failed: %w", err)
	}
	defer os.Remove(temp.Name())

	if err := temp.Chmod(sessionFilePerm); err != nil {
		temp.Close()
		return fmt.Errorf("session_write_failed: %w", err)
	}
	if _, err := temp.Write(payload); err != nil {
		temp.Close()
		return fmt.Errorf("session_write_failed: %w", err)
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		return fmt.Errorf("session_write_failed: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("session_write_failed: %w", err)
	}

	if err := os.Rename(temp.Name(), store.path); err != nil {
		return fmt.Errorf("session_write_failed: %w", err)
	}
	return nil
}

// Load reads the stored session.
func (store *FileStore) Load() (LocalSession, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	payload, err := os.ReadFile(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return LocalSession{}, false, nil
	}
	if err != nil {
		return LocalSession{}, false, fmt.Errorf("session_read_failed: %w", err)
	}

	var session LocalSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return LocalSession{}, false, fmt.Errorf("session_decode_failed: %w", err)
	}
	if session.AccessToken == "" {
		return LocalSession{}, false, nil
	}
	return session, true, nil
}

// Clear removes the session file. Clearing an empty store is not an error.
func (store *FileStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.Remove(store.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session_clear_failed: %w", err)
	}
	return nil
}

// # Memory Store

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	session *LocalSession
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (store *MemoryStore) Save(session LocalSession) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.session = &session
	return nil
}

func (store *MemoryStore) Load() (LocalSession, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.session == nil {
		return LocalSession{}, false, nil
	}
	return *store.session, true, nil
}

func (store *MemoryStore) Clear() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.session = nil
	return nil
}
