// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provider

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Published key endpoints.
const (
	FirebaseKeysURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	GoogleKeysURL   = "https://www.googleapis.com/oauth2/v3/certs"
	AppleKeysURL    = "https://appleid.apple.com/auth/keys"

	firebaseIssuerPrefix = "https://securetoken.google.com/"
	appleIssuer          = "https://appleid.apple.com"
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// idTokenClaims is the union of the claims read from supported ID tokens.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // bool, or "true"/"false" from Apple
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
}

func (claims *idTokenClaims) emailVerified() bool {
	switch value := claims.EmailVerified.(type) {
	case bool:
		return value
	case string:
		return value == "true"
	default:
		return false
	}
}

// IDTokenVerifier verifies RS256 ID tokens against a provider's published keys.
type IDTokenVerifier struct {
	label    func(*idTokenClaims) string
	issuers  []string
	audience string
	keys     *keyCache
	now      func() time.Time
}

// Option customizes an [IDTokenVerifier].
type Option func(*verifierOptions)

type verifierOptions struct {
	keysURL string
	client  *http.Client
	now     func() time.Time
}

// WithKeysURL overrides the key endpoint.
func WithKeysURL(url string) Option {
	return func(o *verifierOptions) { o.keysURL = url }
}

// WithHTTPClient sets the client used to fetch keys.
func WithHTTPClient(client *http.Client) Option {
	return func(o *verifierOptions) { o.client = client }
}

// WithClock sets the time source for expiry checks and key caching.
func WithClock(now func() time.Time) Option {
	return func(o *verifierOptions) { o.now = now }
}

func newIDTokenVerifier(
	defaultURL string,
	format keyFormat,
	issuers []string,
	audience string,
	label func(*idTokenClaims) string,
	opts []Option,
) *IDTokenVerifier {
	options := verifierOptions{keysURL: defaultURL, client: http.DefaultClient, now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}

	return &IDTokenVerifier{
		label:    label,
		issuers:  issuers,
		audience: audience,
		keys:     newKeyCache(options.keysURL, format, options.client, options.now),
		now:      options.now,
	}
}

// NewFirebase verifies Firebase Authentication ID tokens for projectID.
// The account label follows the Firebase sign-in method.
func NewFirebase(projectID string, opts ...Option) *IDTokenVerifier {
	return newIDTokenVerifier(FirebaseKeysURL, formatX509,
		[]string{firebaseIssuerPrefix + projectID}, projectID,
		func(claims *idTokenClaims) string {
			return LabelForSignInProvider(claims.Firebase.SignInProvider)
		}, opts)
}

// NewGoogle verifies Google Sign-In ID tokens issued to clientID.
func NewGoogle(clientID string, opts ...Option) *IDTokenVerifier {
	return newIDTokenVerifier(GoogleKeysURL, formatJWKS, googleIssuers, clientID,
		func(*idTokenClaims) string { return LabelGoogle }, opts)
}

// NewApple verifies Sign in with Apple ID tokens issued to clientID.
func NewApple(clientID string, opts ...Option) *IDTokenVerifier {
	return newIDTokenVerifier(AppleKeysURL, formatJWKS, []string{appleIssuer}, clientID,
		func(*idTokenClaims) string { return LabelApple }, opts)
}

/*
Verify checks the token signature, issuer, audience and lifetime.

Every failure wraps [ErrInvalidToken]; the cause is kept for server logs.
*/
func (verifier *IDTokenVerifier) Verify(ctx context.Context, token string) (*Assertion, error) {
	claims := &idTokenClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(token *jwt.Token) (interface{}, error) {
			kid, ok := token.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, fmt.Errorf("missing kid in token header")
			}
			return verifier.keys.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(verifier.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(verifier.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if !slices.Contains(verifier.issuers, claims.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Assertion{
		Provider:      verifier.label(claims),
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.emailVerified(),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
