// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/jetstream/internal/platform/database/schema"
	"github.com/taibuivan/jetstream/internal/platform/dberr"
)

// MemoryUserRepository is an in-process UserRepository.
//
// It enforces the same uniqueness rules as the users table and hands out
// copies, so callers never share a *User with the store.
type MemoryUserRepository struct {
	mu            sync.RWMutex
	byID          map[string]*User
	byEmail       map[string]string
	byExternalUID map[string]string
	now           func() time.Time
}

// NewMemoryUserRepository creates an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:          make(map[string]*User),
		byEmail:       make(map[string]string),
		byExternalUID: make(map[string]string),
		now:           time.Now,
	}
}

// Count returns the number of stored users.
func (repository *MemoryUserRepository) Count() int {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return len(repository.byID)
}

func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return repository.lookup(id)
}

func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return repository.lookup(repository.byEmail[email])
}

func (repository *MemoryUserRepository) FindByExternalUID(_ context.Context, externalUID string) (*User, error) {
	if externalUID == "" {
		return nil, dberr.ErrNotFound
	}

	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return repository.lookup(repository.byExternalUID[externalUID])
}

func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, taken := repository.byEmail[user.Email]; taken {
		return &dberr.UniqueViolation{Constraint: schema.Users.EmailKey}
	}
	if user.ExternalUID != "" {
		if _, taken := repository.byExternalUID[user.ExternalUID]; taken {
			return &dberr.UniqueViolation{Constraint: schema.Users.ExternalUIDKey}
		}
	}

	now := repository.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	stored := *user
	repository.byID[stored.ID] = &stored
	repository.byEmail[stored.Email] = stored.ID
	if stored.ExternalUID != "" {
		repository.byExternalUID[stored.ExternalUID] = stored.ID
	}

	return nil
}

func (repository *MemoryUserRepository) LinkExternalUID(_ context.Context, userID, externalUID string) (*User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, found := repository.byID[userID]
	if !found {
		return nil, dberr.ErrNotFound
	}

	if owner, taken := repository.byExternalUID[externalUID]; taken && owner != userID {
		return nil, &dberr.UniqueViolation{Constraint: schema.Users.ExternalUIDKey}
	}

	if stored.ExternalUID != "" {
		delete(repository.byExternalUID, stored.ExternalUID)
	}
	stored.ExternalUID = externalUID
	stored.UpdatedAt = repository.now()
	repository.byExternalUID[externalUID] = userID

	copied := *stored
	return &copied, nil
}

func (repository *MemoryUserRepository) UpdateProfile(_ context.Context, userID string, update ProfileUpdate) (*User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, found := repository.byID[userID]
	if !found {
		return nil, dberr.ErrNotFound
	}

	if update.Name != nil {
		stored.Name = *update.Name
	}
	if update.AvatarURL != nil {
		stored.AvatarURL = *update.AvatarURL
	}
	stored.UpdatedAt = repository.now()

	copied := *stored
	return &copied, nil
}

// lookup copies the user with the given id. Callers hold the lock.
func (repository *MemoryUserRepository) lookup(id string) (*User, error) {
	stored, found := repository.byID[id]
	if !found {
		return nil, dberr.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}
