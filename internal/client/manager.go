// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/jetstream/internal/identity/provider"
)

// # Session State

// State is the device session state.
type State int

const (
	StateSignedOut State = iota
	StateAuthenticating
	StateAuthenticated
)

func (state State) String() string {
	switch state {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "signed_out"
	}
}

// authenticateKey coalesces every overlapping sign-in of one device.
const authenticateKey = "authenticate"

// authenticateTimeout bounds a shared attempt once it no longer follows any
// single caller's context.
const authenticateTimeout = 30 * time.Second

// # Manager

/*
Manager owns the device session.

Authentication attempts move the session to Authenticating and end in
Authenticated once the token pair is stored, or in SignedOut on any failure.
Overlapping attempts share the result of the one in flight. Every attempt
and every sign-out bumps a generation counter; an attempt that completes
after a newer one started, or after a sign-out, discards its tokens.
*/
type Manager struct {
	client *Client
	store  TokenStore
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group

	mu         sync.Mutex
	state      State
	lastErr    error
	user       *User
	generation uint64
}

// ManagerOption configures a [Manager].
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(manager *Manager) { manager.logger = logger }
}

// WithClock overrides the time source used to compute token expiry.
func WithClock(now func() time.Time) ManagerOption {
	return func(manager *Manager) { manager.now = now }
}

// NewManager restores any stored session and returns the manager.
func NewManager(client *Client, store TokenStore, opts ...ManagerOption) (*Manager, error) {
	manager := &Manager{
		client: client,
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(manager)
	}

	session, found, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("session_restore_failed: %w", err)
	}
	if found {
		manager.state = StateAuthenticated
		manager.user = session.User
	}

	return manager, nil
}

// State returns the current session state.
func (manager *Manager) State() State {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.state
}

// LastError returns the failure that last moved the session to SignedOut.
func (manager *Manager) LastError() error {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.lastErr
}

// User returns the signed-in account, if known.
func (manager *Manager) User() *User {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.user
}

// CurrentAccessToken returns the stored access token.
func (manager *Manager) CurrentAccessToken() (string, bool) {
	session, found, err := manager.store.Load()
	if err != nil || !found {
		return "", false
	}
	return session.AccessToken, true
}

// AccessTokenExpired reports whether the stored access token is past its
// lifetime. It is false when no session is stored.
func (manager *Manager) AccessTokenExpired() bool {
	session, found, err := manager.store.Load()
	if err != nil || !found {
		return false
	}
	return session.Expired(manager.now())
}

// # Authentication

// Login signs in with an email/password credential.
func (manager *Manager) Login(ctx context.Context, email, password string) (*User, error) {
	return manager.authenticate(ctx, func(ctx context.Context) (*AuthResponse, error) {
		return manager.client.Login(ctx, email, password)
	})
}

// Register creates an account and signs in.
func (manager *Manager) Register(ctx context.Context, email, password, name string) (*User, error) {
	return manager.authenticate(ctx, func(ctx context.Context) (*AuthResponse, error) {
		return manager.client.Register(ctx, email, password, name)
	})
}

// ExchangeAssertion trades an identity token from an upstream sign-in for a
// session. signInProvider is the upstream sign-in method id ("google.com",
// "apple.com", "password").
func (manager *Manager) ExchangeAssertion(ctx context.Context, signInProvider, idToken string) (*User, error) {
	label := provider.LabelForSignInProvider(signInProvider)
	return manager.authenticate(ctx, func(ctx context.Context) (*AuthResponse, error) {
		return manager.client.Social(ctx, label, idToken)
	})
}

func (manager *Manager) authenticate(ctx context.Context, call func(context.Context) (*AuthResponse, error)) (*User, error) {
	results := manager.group.DoChan(authenticateKey, func() (any, error) {
		generation := manager.begin()

		// The first caller's cancellation must not fail callers that joined it.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), authenticateTimeout)
		defer cancel()

		response, err := call(callCtx)
		if err != nil {
			manager.fail(generation, err)
			return nil, err
		}
		return manager.complete(generation, response)
	})

	select {
	case result := <-results:
		if result.Shared {
			manager.logger.DebugContext(ctx, "auth_attempt_coalesced")
		}
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*User), nil

	case <-ctx.Done():
		// Joined callers keep waiting on the shared attempt. The next new
		// attempt starts fresh and supersedes it.
		manager.group.Forget(authenticateKey)
		return nil, ctx.Err()
	}
}

func (manager *Manager) begin() uint64 {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.generation++
	manager.state = StateAuthenticating
	manager.lastErr = nil
	return manager.generation
}

// complete stores the pair and enters Authenticated if the attempt is still current.
func (manager *Manager) complete(generation uint64, response *AuthResponse) (*User, error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if generation != manager.generation {
		manager.logger.Info("auth_attempt_superseded")
		return nil, ErrSuperseded
	}

	user := response.User
	session := LocalSession{
		AccessToken:  response.AccessToken,
		RefreshToken: response.RefreshToken,
		ExpiresAt:    manager.now().Add(time.Duration(response.ExpiresIn) * time.Second),
		User:         &user,
	}
	if err := manager.store.Save(session); err != nil {
		manager.signOutLocked(err)
		return nil, err
	}

	manager.state = StateAuthenticated
	manager.user = &user
	manager.logger.Info("session_authenticated", slog.String("user_id", user.ID))
	return &user, nil
}

func (manager *Manager) fail(generation uint64, err error) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if generation != manager.generation {
		return
	}
	manager.signOutLocked(err)
	manager.logger.Info("auth_attempt_failed", slog.Any("error", err))
}

// # Session Maintenance

// Refresh trades the stored refresh token for a new pair.
// A rejected refresh leaves the stored session in place.
func (manager *Manager) Refresh(ctx context.Context) error {
	manager.mu.Lock()
	generation := manager.generation
	manager.mu.Unlock()

	session, found, err := manager.store.Load()
	if err != nil {
		return err
	}
	if !found {
		return ErrNotSignedIn
	}

	pair, err := manager.client.Refresh(ctx, session.RefreshToken)
	if err != nil {
		return err
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()

	if generation != manager.generation || manager.state != StateAuthenticated {
		return ErrSuperseded
	}

	session.AccessToken = pair.AccessToken
	session.RefreshToken = pair.RefreshToken
	session.ExpiresAt = manager.now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	return manager.store.Save(session)
}

// Profile fetches the signed-in user's profile. A 401 is returned to the
// caller and does not end the session.
func (manager *Manager) Profile(ctx context.Context) (*Profile, error) {
	if manager.State() != StateAuthenticated {
		return nil, ErrNotSignedIn
	}
	return manager.client.Profile(ctx)
}

// UpdateProfile applies a partial profile change.
func (manager *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	if manager.State() != StateAuthenticated {
		return nil, ErrNotSignedIn
	}
	return manager.client.UpdateProfile(ctx, update)
}

// SignOut clears the stored session. In-flight attempts are discarded.
func (manager *Manager) SignOut() error {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.generation++
	manager.logger.Info("session_signed_out")
	return manager.signOutLocked(nil)
}

// ProviderSignedOut handles the upstream identity provider reporting that the
// user is no longer signed in.
func (manager *Manager) ProviderSignedOut() error {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.generation++
	manager.logger.Info("session_provider_signed_out")
	return manager.signOutLocked(nil)
}

func (manager *Manager) signOutLocked(cause error) error {
	err := manager.store.Clear()
	manager.state = StateSignedOut
	manager.user = nil
	manager.lastErr = cause
	return err
}
