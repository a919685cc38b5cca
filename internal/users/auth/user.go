// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the JetStream identity layer.

It owns the durable User record and the two ways of arriving at one: a password
credential checked against the stored hash, or an externally verified identity
assertion reconciled into exactly one account by the [IdentityResolver].

# Architecture

  - Entities: User and the Credential variants.
  - Repository: [UserRepository] with Postgres and in-memory implementations.
  - Service: Register, Login, Social and Refresh use cases.
  - Handler: the public /auth endpoints.
*/
package auth

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/jetstream/internal/platform/constants"
)

// # Domain Entities

// User is the durable account record. Exactly one exists per person.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Empty for provider-only accounts.
	ExternalUID  string    `json:"-"` // Empty when no provider is bound.
	AuthProvider string    `json:"auth_provider"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (user *User) HasPassword() bool {
	return user.PasswordHash != ""
}

// Summary is the public view embedded in authentication responses.
type Summary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Summary returns the public view of the user.
func (user *User) Summary() Summary {
	return Summary{ID: user.ID, Email: user.Email, Name: user.Name}
}

// # Credentials

// Credential is a proof of identity presented for authentication.
// It is one of [PasswordCredential] or [ExternalAssertion].
type Credential interface {
	credential()
}

// PasswordCredential is an email and password pair.
type PasswordCredential struct {
	Email    string
	Password string
}

// ExternalAssertion is an identity already verified by an external provider.
// It is trusted for authenticity but not for uniqueness against local accounts.
type ExternalAssertion struct {
	Provider    string
	ExternalUID string
	Email       string
	Name        string
	AvatarURL   string

	// EmailVerified reports whether the provider vouches for Email. An
	// unverified email never links onto an existing account.
	EmailVerified bool
}

func (PasswordCredential) credential() {}
func (ExternalAssertion) credential()  {}

// # Normalization

// NormalizeEmail canonicalizes an email for storage and lookup.
func NormalizeEmail(email string) string {
	folded := norm.NFKC.String(strings.TrimSpace(email))
	return cases.Lower(language.Und).String(folded)
}

// displayNameFor picks a display name when a provider supplies none.
func displayNameFor(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if local, _, found := strings.Cut(email, "@"); found && local != "" {
		return local
	}
	return defaultDisplayName
}

// # Field Identifiers

const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldName         = "name"
	FieldProvider     = "provider"
	FieldToken        = "token"
	FieldRefreshToken = "refresh_token"
)

const (
	// defaultDisplayName is used when neither a name nor an email local part exists.
	defaultDisplayName = "User"

	// minPasswordLength is the shortest accepted password at registration.
	minPasswordLength = 8

	// maxResolveAttempts bounds the resolve-and-retry loop after a uniqueness race.
	maxResolveAttempts = 3

	// ProviderEmail labels password-registered accounts.
	ProviderEmail = constants.ProviderEmail
)
