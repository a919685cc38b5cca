// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/jetstream/internal/identity/provider"
	"github.com/taibuivan/jetstream/internal/platform/apperr"
	"github.com/taibuivan/jetstream/internal/platform/ctxutil"
	"github.com/taibuivan/jetstream/internal/platform/dberr"
	"github.com/taibuivan/jetstream/internal/platform/metrics"
	"github.com/taibuivan/jetstream/internal/platform/sec"
	"github.com/taibuivan/jetstream/internal/platform/throttle"
	"github.com/taibuivan/jetstream/pkg/uuid"
)

// Client-visible messages. Login failures share one message so the response
// never reveals whether the email exists.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "Email already registered"
	msgInvalidRefresh     = "Invalid or expired refresh token"
	msgInvalidAssertion   = "Invalid identity token"
	msgProviderAbsent     = "Social authentication is not available for this provider"
)

// # Contracts & Types

// TokenIssuer mints and verifies session tokens.
type TokenIssuer interface {
	MintPair(userID, email string) (*sec.TokenPair, error)
	Verify(tokenString string, expectedType sec.TokenType) (*sec.AuthClaims, error)
}

// ProviderRegistry looks up the external verifier for a provider name.
type ProviderRegistry interface {
	Lookup(name string) (provider.Verifier, error)
}

// Session is the payload returned by every successful sign-in.
type Session struct {
	User Summary `json:"user"`
	sec.TokenPair
}

// Service implements the authentication use cases.
type Service struct {
	userRepository UserRepository
	resolver       *IdentityResolver
	tokens         TokenIssuer
	providers      ProviderRegistry
	loginThrottle  throttle.LoginThrottle
	recorder       metrics.Recorder
}

// Option customizes a [Service].
type Option func(*Service)

// WithThrottle enables failed-login throttling.
func WithThrottle(limiter throttle.LoginThrottle) Option {
	return func(service *Service) { service.loginThrottle = limiter }
}

// WithRecorder records authentication outcomes.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(service *Service) { service.recorder = recorder }
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	tokens TokenIssuer,
	providers ProviderRegistry,
	opts ...Option,
) *Service {
	service := &Service{
		userRepository: userRepo,
		tokens:         tokens,
		providers:      providers,
		loginThrottle:  throttle.Disabled{},
		recorder:       metrics.Nop{},
	}
	for _, opt := range opts {
		opt(service)
	}
	service.resolver = NewIdentityResolver(userRepo, service.recorder)
	return service
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

/*
Register hashes the password, persists a new email account and signs it in.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Session: The new account and its token pair
  - error: Conflict if the email exists, Internal otherwise
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Session, error) {
	email := NormalizeEmail(input.Email)

	_, err := service.userRepository.FindByEmail(context, email)
	if err == nil {
		service.recorder.RecordAuth(metrics.MethodRegister, metrics.OutcomeRejected)
		return nil, apperr.Conflict(msgEmailTaken)
	}
	if !errors.Is(err, dberr.ErrNotFound) {
		return nil, service.fail(metrics.MethodRegister, fmt.Errorf("auth_service_register_lookup_failed: %w", err))
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if errors.Is(err, sec.ErrPasswordTooLong) {
		service.recorder.RecordAuth(metrics.MethodRegister, metrics.OutcomeRejected)
		return nil, apperr.ValidationError("Invalid input", apperr.FieldError{
			Field:   FieldPassword,
			Message: fmt.Sprintf("Maximum %d bytes", sec.MaxPasswordBytes),
		})
	}
	if err != nil {
		return nil, service.fail(metrics.MethodRegister, fmt.Errorf("auth_service_hash_failed: %w", err))
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		AuthProvider: ProviderEmail,
		Name:         input.Name,
	}

	// A concurrent registration for the same email loses on the unique index.
	if err := service.userRepository.Create(context, user); err != nil {
		if errors.Is(err, dberr.ErrUniqueViolation) {
			service.recorder.RecordAuth(metrics.MethodRegister, metrics.OutcomeRejected)
			return nil, apperr.Conflict(msgEmailTaken)
		}
		return nil, service.fail(metrics.MethodRegister, fmt.Errorf("auth_service_register_failed: %w", err))
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_registered", slog.String("user_id", user.ID))

	return service.issue(metrics.MethodRegister, user)
}

// # Authentication Flow

/*
Login signs in with an email and password.

Description: Unknown emails, provider-only accounts and wrong passwords all
return the same Unauthorized error. Repeated failures for one email are
throttled when a throttle is configured.

Parameters:
  - context: context.Context
  - credential: PasswordCredential

Returns:
  - *Session: The account and its token pair
  - error: Unauthorized, RateLimited or Internal
*/
func (service *Service) Login(context context.Context, credential PasswordCredential) (*Session, error) {
	credential.Email = NormalizeEmail(credential.Email)
	logger := ctxutil.GetLogger(context)

	if err := service.loginThrottle.Check(context, credential.Email); err != nil {
		if apperr.HasCode(err, apperr.CodeRateLimited) {
			service.recorder.RecordAuth(metrics.MethodLogin, metrics.OutcomeRejected)
			return nil, err
		}
		logger.WarnContext(context, "login_throttle_unavailable", slog.Any("error", err))
	}

	user, err := service.Authenticate(context, credential)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeUnauthorized) {
			if throttleErr := service.loginThrottle.RecordFailure(context, credential.Email); throttleErr != nil {
				logger.WarnContext(context, "login_throttle_unavailable", slog.Any("error", throttleErr))
			}
			service.recorder.RecordAuth(metrics.MethodLogin, metrics.OutcomeRejected)
			return nil, err
		}
		return nil, service.fail(metrics.MethodLogin, err)
	}

	if err := service.loginThrottle.Reset(context, credential.Email); err != nil {
		logger.WarnContext(context, "login_throttle_unavailable", slog.Any("error", err))
	}

	return service.issue(metrics.MethodLogin, user)
}

/*
Social exchanges a provider-issued token for a session.

Parameters:
  - context: context.Context
  - providerName: string (registry key, e.g. "google")
  - token: string (opaque provider token)

Returns:
  - *Session: The resolved account and its token pair
  - error: NotImplemented for an absent provider, Unauthorized for a bad token
*/
func (service *Service) Social(context context.Context, providerName, token string) (*Session, error) {
	verifier, err := service.providers.Lookup(providerName)
	if err != nil {
		service.recorder.RecordAuth(metrics.MethodSocial, metrics.OutcomeRejected)
		return nil, apperr.NotImplemented(msgProviderAbsent)
	}

	assertion, err := verifier.Verify(context, token)
	if err != nil {
		ctxutil.GetLogger(context).InfoContext(context, "identity_assertion_rejected",
			slog.String("provider", providerName),
			slog.Any("error", err),
		)
		service.recorder.RecordAuth(metrics.MethodSocial, metrics.OutcomeRejected)
		return nil, apperr.Unauthorized(msgInvalidAssertion)
	}

	label := assertion.Provider
	if label == "" {
		label = providerName
	}

	user, err := service.Authenticate(context, ExternalAssertion{
		Provider:      label,
		ExternalUID:   assertion.Subject,
		Email:         assertion.Email,
		Name:          assertion.Name,
		AvatarURL:     assertion.Picture,
		EmailVerified: assertion.EmailVerified,
	})
	if err != nil {
		if apperr.HasCode(err, apperr.CodeValidation) || apperr.HasCode(err, apperr.CodeUnauthorized) {
			service.recorder.RecordAuth(metrics.MethodSocial, metrics.OutcomeRejected)
			return nil, err
		}
		return nil, service.fail(metrics.MethodSocial, err)
	}

	return service.issue(metrics.MethodSocial, user)
}

/*
Authenticate resolves any credential variant to exactly one account.

Parameters:
  - context: context.Context
  - credential: Credential (PasswordCredential or ExternalAssertion)

Returns:
  - *User: The authenticated account
  - error: Unauthorized, ValidationError or Internal
*/
func (service *Service) Authenticate(context context.Context, credential Credential) (*User, error) {
	switch typed := credential.(type) {
	case PasswordCredential:
		return service.verifyPassword(context, typed)
	case ExternalAssertion:
		return service.resolver.Resolve(context, typed)
	default:
		return nil, apperr.Internal(fmt.Errorf("auth_service_unknown_credential: %T", credential))
	}
}

// verifyPassword checks a password credential in constant time against the stored hash.
func (service *Service) verifyPassword(context context.Context, credential PasswordCredential) (*User, error) {
	email := NormalizeEmail(credential.Email)

	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if !errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.Internal(fmt.Errorf("auth_service_login_lookup_failed: %w", err))
		}

		// Spend the same hashing time as a real comparison.
		sec.CheckPasswordHash(credential.Password, "")
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	if !user.HasPassword() {
		ctxutil.GetLogger(context).DebugContext(context, "login_provider_only_account",
			slog.String("user_id", user.ID),
			slog.String("provider", user.AuthProvider),
		)
	}

	if !sec.CheckPasswordHash(credential.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	return user, nil
}

// # Token Refresh

/*
Refresh exchanges a valid refresh token for a new token pair.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *sec.TokenPair: Fresh access and refresh tokens
  - error: Unauthorized for any invalid token or a vanished account
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*sec.TokenPair, error) {
	claims, err := service.tokens.Verify(refreshToken, sec.TokenRefresh)
	if err != nil {
		service.recorder.RecordAuth(metrics.MethodRefresh, metrics.OutcomeRejected)
		return nil, apperr.Unauthorized(msgInvalidRefresh)
	}

	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			service.recorder.RecordAuth(metrics.MethodRefresh, metrics.OutcomeRejected)
			return nil, apperr.Unauthorized(msgInvalidRefresh)
		}
		return nil, service.fail(metrics.MethodRefresh, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err))
	}

	pair, err := service.tokens.MintPair(user.ID, user.Email)
	if err != nil {
		return nil, service.fail(metrics.MethodRefresh, fmt.Errorf("auth_service_token_generation_failed: %w", err))
	}

	service.recorder.RecordAuth(metrics.MethodRefresh, metrics.OutcomeSuccess)
	return pair, nil
}

// # Helpers

// issue mints a token pair for user and records a successful attempt.
func (service *Service) issue(method string, user *User) (*Session, error) {
	pair, err := service.tokens.MintPair(user.ID, user.Email)
	if err != nil {
		return nil, service.fail(method, fmt.Errorf("auth_service_token_generation_failed: %w", err))
	}

	service.recorder.RecordAuth(method, metrics.OutcomeSuccess)
	return &Session{User: user.Summary(), TokenPair: *pair}, nil
}

// fail records an unexpected failure and converts it to an Internal error.
func (service *Service) fail(method string, err error) error {
	service.recorder.RecordAuth(method, metrics.OutcomeError)
	if appError := apperr.As(err); appError != nil {
		return appError
	}
	return apperr.Internal(err)
}
