// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/jetstream/internal/platform/apperr"
	"github.com/taibuivan/jetstream/internal/platform/metrics"
	"github.com/taibuivan/jetstream/internal/users/auth"
)

// racingRepository holds the first two Create calls until both have arrived,
// forcing concurrent resolutions past the lookup steps together.
type racingRepository struct {
	*auth.MemoryUserRepository
	arrived atomic.Int32
	gate    chan struct{}
}

func newRacingRepository() *racingRepository {
	return &racingRepository{
		MemoryUserRepository: auth.NewMemoryUserRepository(),
		gate:                 make(chan struct{}),
	}
}

func (repository *racingRepository) Create(ctx context.Context, user *auth.User) error {
	switch repository.arrived.Add(1) {
	case 1:
		<-repository.gate
	case 2:
		close(repository.gate)
	}
	return repository.MemoryUserRepository.Create(ctx, user)
}

// brokenRepository fails every provider lookup.
type brokenRepository struct {
	*auth.MemoryUserRepository
}

func (brokenRepository) FindByExternalUID(context.Context, string) (*auth.User, error) {
	return nil, errors.New("connection refused")
}

func googleAssertion(uid, email string) auth.ExternalAssertion {
	return auth.ExternalAssertion{
		Provider:      "google",
		ExternalUID:   uid,
		Email:         email,
		Name:          "Ann",
		AvatarURL:     "https://img.example/ann.png",
		EmailVerified: true,
	}
}

/*
TestResolve_CreatesThenReuses verifies that one external UID always maps to one user.
*/
func TestResolve_CreatesThenReuses(t *testing.T) {
	ctx := context.Background()
	repository := auth.NewMemoryUserRepository()
	resolver := auth.NewIdentityResolver(repository, nil)

	first, err := resolver.Resolve(ctx, googleAssertion("g-1", "ann@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "google", first.AuthProvider)
	assert.Equal(t, "Ann", first.Name)
	assert.False(t, first.HasPassword())

	// A later payload with different metadata must not clobber the account.
	changed := googleAssertion("g-1", "ann@x.com")
	changed.Name = "Someone Else"
	second, err := resolver.Resolve(ctx, changed)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ann", second.Name)
	assert.Equal(t, 1, repository.Count())
}

/*
TestResolve_LinksExistingEmail binds the provider identity to a password account.
*/
func TestResolve_LinksExistingEmail(t *testing.T) {
	ctx := context.Background()
	repository := auth.NewMemoryUserRepository()
	service := newTestService(t, repository, nil)

	registered, err := service.Register(ctx, auth.RegisterInput{Email: "ann@x.com", Password: "password1", Name: "Ann"})
	require.NoError(t, err)

	resolver := auth.NewIdentityResolver(repository, metrics.Nop{})
	linked, err := resolver.Resolve(ctx, googleAssertion("g-1", "  ANN@x.com "))
	require.NoError(t, err)

	assert.Equal(t, registered.User.ID, linked.ID)
	assert.Equal(t, "g-1", linked.ExternalUID)
	assert.Equal(t, 1, repository.Count())

	// Password login and provider uid now converge on the same account.
	byPassword, err := service.Login(ctx, auth.PasswordCredential{Email: "ann@x.com", Password: "password1"})
	require.NoError(t, err)
	byProvider, err := resolver.Resolve(ctx, googleAssertion("g-1", "other@x.com"))
	require.NoError(t, err)

	assert.Equal(t, registered.User.ID, byPassword.User.ID)
	assert.Equal(t, registered.User.ID, byProvider.ID)
}

/*
TestResolve_UnverifiedEmailNeverLinks keeps an unverified assertion off an existing account.
*/
func TestResolve_UnverifiedEmailNeverLinks(t *testing.T) {
	ctx := context.Background()
	repository := auth.NewMemoryUserRepository()
	service := newTestService(t, repository, nil)

	victim, err := service.Register(ctx, auth.RegisterInput{Email: "victim@x.com", Password: "password1", Name: "Vic"})
	require.NoError(t, err)

	unverified := googleAssertion("attacker-uid", "victim@x.com")
	unverified.EmailVerified = false

	user, err := auth.NewIdentityResolver(repository, nil).Resolve(ctx, unverified)
	require.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	stored, err := repository.FindByID(ctx, victim.User.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ExternalUID)
	assert.Equal(t, 1, repository.Count())

	// A first sighting has nothing to claim and still creates an account.
	fresh := googleAssertion("g-2", "new@x.com")
	fresh.EmailVerified = false
	created, err := auth.NewIdentityResolver(repository, nil).Resolve(ctx, fresh)
	require.NoError(t, err)
	assert.NotEqual(t, victim.User.ID, created.ID)
}

/*
TestResolve_ConcurrentFirstSighting lets two resolutions race to create the same account.
*/
func TestResolve_ConcurrentFirstSighting(t *testing.T) {
	ctx := context.Background()
	repository := newRacingRepository()
	resolver := auth.NewIdentityResolver(repository, nil)

	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)

	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := resolver.Resolve(ctx, googleAssertion("g-new", "new@x.com"))
			errs[i] = err
			if user != nil {
				ids[i] = user.ID
			}
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, ids[0], ids[1])
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, 1, repository.Count())
}

/*
TestResolve_Rejections covers inputs that cannot be resolved.
*/
func TestResolve_Rejections(t *testing.T) {
	ctx := context.Background()

	resolver := auth.NewIdentityResolver(auth.NewMemoryUserRepository(), nil)
	_, err := resolver.Resolve(ctx, googleAssertion("g-1", "   "))
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = resolver.Resolve(ctx, googleAssertion("", "ann@x.com"))
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	broken := auth.NewIdentityResolver(brokenRepository{auth.NewMemoryUserRepository()}, nil)
	_, err = broken.Resolve(ctx, googleAssertion("g-1", "ann@x.com"))
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
	assert.NotContains(t, err.Error(), "connection refused")
}

/*
TestResolve_DefaultName falls back to the email local part.
*/
func TestResolve_DefaultName(t *testing.T) {
	resolver := auth.NewIdentityResolver(auth.NewMemoryUserRepository(), nil)

	assertion := googleAssertion("g-2", "pilot@x.com")
	assertion.Name = ""
	user, err := resolver.Resolve(context.Background(), assertion)
	require.NoError(t, err)
	assert.Equal(t, "pilot", user.Name)
}
