// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/jetstream/internal/platform/apperr"
	"github.com/taibuivan/jetstream/internal/platform/ctxutil"
	"github.com/taibuivan/jetstream/internal/platform/dberr"
	"github.com/taibuivan/jetstream/internal/platform/metrics"
	"github.com/taibuivan/jetstream/pkg/uuid"
)

// # Identity Resolution

// IdentityResolver reconciles verified external identities into local accounts.
//
// # Resolution Order
//  1. External UID match: return the bound account unchanged.
//  2. Email match: bind the external UID to that account (account linking).
//     Only a provider-verified email may link; otherwise resolution is refused.
//  3. Otherwise create a provider-only account.
//
// The store's uniqueness constraints arbitrate concurrent resolutions. When a
// write loses that race the whole sequence restarts from step 1.
type IdentityResolver struct {
	userRepository UserRepository
	recorder       metrics.Recorder
}

// errUnverifiedEmail stops an unverified assertion from claiming an existing account.
var errUnverifiedEmail = errors.New("identity email not verified")

// NewIdentityResolver constructs an [IdentityResolver].
func NewIdentityResolver(userRepo UserRepository, recorder metrics.Recorder) *IdentityResolver {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &IdentityResolver{userRepository: userRepo, recorder: recorder}
}

/*
Resolve finds or creates exactly one account for the assertion.

Description: Repeated resolution of the same external UID always yields the same
user ID. Losing a uniqueness race is retried, never surfaced to the caller.

Parameters:
  - context: context.Context
  - assertion: ExternalAssertion (already verified by the provider)

Returns:
  - *User: The resolved account
  - error: ValidationError for a missing email or UID, Unauthorized for an
    unverified email that matches an existing account, Internal for store failures
*/
func (resolver *IdentityResolver) Resolve(context context.Context, assertion ExternalAssertion) (*User, error) {
	assertion.Email = NormalizeEmail(assertion.Email)

	if assertion.Email == "" {
		return nil, apperr.ValidationError("Identity assertion has no email",
			apperr.FieldError{Field: FieldEmail, Message: "is required"})
	}
	if assertion.ExternalUID == "" {
		return nil, apperr.ValidationError("Identity assertion has no subject",
			apperr.FieldError{Field: FieldToken, Message: "has no subject"})
	}

	logger := ctxutil.GetLogger(context)

	var lastErr error
	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		user, err := resolver.resolveOnce(context, assertion)
		if err == nil {
			return user, nil
		}

		if errors.Is(err, errUnverifiedEmail) {
			logger.WarnContext(context, "identity_link_refused",
				slog.String("provider", assertion.Provider),
			)
			return nil, apperr.Unauthorized(msgInvalidAssertion)
		}
		if !errors.Is(err, dberr.ErrUniqueViolation) {
			return nil, apperr.Internal(fmt.Errorf("identity_resolve_failed: %w", err))
		}

		lastErr = err
		resolver.recorder.RecordResolution(metrics.ResolutionRetry)
		logger.InfoContext(context, "identity_resolve_retry",
			slog.String("provider", assertion.Provider),
			slog.Int("attempt", attempt),
		)
	}

	return nil, apperr.Internal(fmt.Errorf("identity_resolve_exhausted: %w", lastErr))
}

// resolveOnce runs the three resolution steps a single time.
func (resolver *IdentityResolver) resolveOnce(context context.Context, assertion ExternalAssertion) (*User, error) {
	logger := ctxutil.GetLogger(context)

	// 1. Existing provider binding short-circuits without touching other fields
	user, err := resolver.userRepository.FindByExternalUID(context, assertion.ExternalUID)
	if err == nil {
		resolver.recorder.RecordResolution(metrics.ResolutionExisting)
		return user, nil
	}
	if !errors.Is(err, dberr.ErrNotFound) {
		return nil, err
	}

	// 2. Same email: link the provider identity onto the existing account
	user, err = resolver.userRepository.FindByEmail(context, assertion.Email)
	if err == nil {
		if !assertion.EmailVerified {
			return nil, errUnverifiedEmail
		}
		linked, err := resolver.userRepository.LinkExternalUID(context, user.ID, assertion.ExternalUID)
		if err != nil {
			return nil, err
		}

		resolver.recorder.RecordResolution(metrics.ResolutionLinked)
		logger.InfoContext(context, "identity_linked",
			slog.String("user_id", linked.ID),
			slog.String("provider", assertion.Provider),
		)
		return linked, nil
	}
	if !errors.Is(err, dberr.ErrNotFound) {
		return nil, err
	}

	// 3. First sighting: create a provider-only account
	user = &User{
		ID:           uuid.New(),
		Email:        assertion.Email,
		ExternalUID:  assertion.ExternalUID,
		AuthProvider: assertion.Provider,
		Name:         displayNameFor(assertion.Name, assertion.Email),
		AvatarURL:    assertion.AvatarURL,
	}

	if err := resolver.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	resolver.recorder.RecordResolution(metrics.ResolutionCreated)
	logger.InfoContext(context, "identity_created",
		slog.String("user_id", user.ID),
		slog.String("provider", assertion.Provider),
	)
	return user, nil
}
