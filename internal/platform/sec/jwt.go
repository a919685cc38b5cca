// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and session token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. [TokenService] is both the issuer and the verifier of
// session tokens; it is constructed once at startup from immutable
// configuration and injected wherever tokens are minted or checked.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/jetstream/internal/platform/constants"
)

// TokenType distinguishes short-lived access tokens from long-lived refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// ErrInvalidToken is the only error [TokenService.Verify] returns.
//
// Malformed, expired, foreign-issuer and wrong-type tokens all collapse into it
// so callers cannot learn which validation step failed.
var ErrInvalidToken = errors.New("sec: invalid token")

// ErrMissingSecret is returned by [NewTokenService] when no signing secret is supplied.
var ErrMissingSecret = errors.New("sec: signing secret is required")

// AuthClaims represents the payload embedded inside a session token.
//
// The identity (UserID, Email) is carried in the token so that
// [middleware.Authenticate] can reconstruct the caller WITHOUT querying the
// database on every request.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Type   TokenType `json:"type"`
}

// TokenPair is the result of a successful authentication event.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// TokenService mints and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option customizes a [TokenService].
type Option func(*TokenService)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(service *TokenService) {
		service.now = now
	}
}

// NewTokenService creates a new TokenService.
//
// An empty secret or issuer is a configuration error and must abort startup.
func NewTokenService(secret []byte, issuer string, opts ...Option) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if issuer == "" {
		return nil, fmt.Errorf("sec: issuer is required")
	}

	service := &TokenService{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Issuer returns the issuer identity embedded in every token.
func (service *TokenService) Issuer() string {
	return service.issuer
}

// Mint creates a signed token of the given type for a user.
func (service *TokenService) Mint(userID, email string, tokenType TokenType) (string, error) {
	ttl := constants.AccessTokenTTL
	if tokenType == TokenRefresh {
		ttl = constants.RefreshTokenTTL
	}

	currentTime := service.now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
		Type:   tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// MintPair mints an access and a refresh token for the same identity.
func (service *TokenService) MintPair(userID, email string) (*TokenPair, error) {
	accessToken, err := service.Mint(userID, email, TokenAccess)
	if err != nil {
		return nil, err
	}

	refreshToken, err := service.Mint(userID, email, TokenRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(constants.AccessTokenTTL / time.Second),
	}, nil
}

// Verify checks signature and issuer, then expiry, then the token type.
//
// Any failure returns [ErrInvalidToken].
func (service *TokenService) Verify(tokenString string, expectedType TokenType) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != expectedType || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
