// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account lets an authenticated user read and edit their own profile.

# Architecture

  - Entities: Profile (transport view of [auth.User]).
  - Domain: This package depends on the auth package for the User entity and
    reuses its repository.
  - Security: Every route sits behind the Authenticate middleware and only ever
    touches the account named by the verified access token.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/jetstream/internal/users/auth"
)

// # Domain Entities

// Profile is the private view of the caller's account.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatar_url"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// newProfile maps a user onto its profile view.
func newProfile(user *auth.User) *Profile {
	return &Profile{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		AvatarURL:    user.AvatarURL,
		AuthProvider: user.AuthProvider,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

// # Repository Contracts

// AccountRepository is the subset of [auth.UserRepository] this package needs.
type AccountRepository interface {
	FindByID(context context.Context, id string) (*auth.User, error)
	UpdateProfile(context context.Context, userID string, update auth.ProfileUpdate) (*auth.User, error)
}
