// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package provider verifies identity tokens issued by external sign-in providers.

Each [Verifier] checks a provider's RS256 ID token against that provider's
published signing keys and returns the verified [Assertion]. The [Registry]
maps the provider names accepted by the API onto configured verifiers.

Supported providers:

  - firebase: Firebase Authentication ID tokens (securetoken x509 keys).
  - google: Google Sign-In ID tokens (JWKS).
  - apple: Sign in with Apple ID tokens (JWKS).
*/
package provider

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrProviderNotConfigured is returned by [Registry.Lookup] for absent providers.
	ErrProviderNotConfigured = errors.New("provider: not configured")

	// ErrInvalidToken is returned for any token that fails verification.
	ErrInvalidToken = errors.New("provider: invalid identity token")
)

// Provider labels stored on accounts.
const (
	LabelGoogle   = "google"
	LabelApple    = "apple"
	LabelFirebase = "firebase"
	LabelEmail    = "email"
)

// Assertion is a verified claim about a user's identity.
type Assertion struct {
	// Provider is the label recorded on accounts created from this assertion.
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Verifier validates an opaque provider token.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Assertion, error)
}

// LabelForSignInProvider maps a Firebase sign-in method onto an account label.
func LabelForSignInProvider(signInProvider string) string {
	switch signInProvider {
	case "google.com":
		return LabelGoogle
	case "apple.com":
		return LabelApple
	default:
		return LabelEmail
	}
}

// # Registry

// Registry holds the verifiers of configured providers.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

// Register adds or replaces the verifier for name.
func (registry *Registry) Register(name string, verifier Verifier) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.verifiers[strings.ToLower(name)] = verifier
}

// Lookup returns the verifier for name or [ErrProviderNotConfigured].
func (registry *Registry) Lookup(name string) (Verifier, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	verifier, found := registry.verifiers[strings.ToLower(strings.TrimSpace(name))]
	if !found {
		return nil, ErrProviderNotConfigured
	}
	return verifier, nil
}

// Names lists the configured providers in sorted order.
func (registry *Registry) Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.verifiers))
	for name := range registry.verifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Settings names the provider credentials of a deployment. Empty values leave
// the provider absent.
type Settings struct {
	FirebaseProjectID string
	GoogleClientID    string
	AppleClientID     string
}

/*
NewConfiguredRegistry registers a verifier for every configured provider.

Mobile clients signed in through Firebase exchange a Firebase ID token under
the label of their sign-in method (google, apple, email). The Firebase
verifier therefore also answers for those labels unless a dedicated
verifier is configured.
*/
func NewConfiguredRegistry(settings Settings, opts ...Option) *Registry {
	registry := NewRegistry()

	if settings.FirebaseProjectID != "" {
		firebase := NewFirebase(settings.FirebaseProjectID, opts...)
		for _, name := range []string{LabelFirebase, LabelEmail, LabelGoogle, LabelApple} {
			registry.Register(name, firebase)
		}
	}
	if settings.GoogleClientID != "" {
		registry.Register(LabelGoogle, NewGoogle(settings.GoogleClientID, opts...))
	}
	if settings.AppleClientID != "" {
		registry.Register(LabelApple, NewApple(settings.AppleClientID, opts...))
	}

	return registry
}
