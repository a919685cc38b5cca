// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package client is the device-side half of JetStream authentication.

[Client] speaks the REST API and attaches the stored access token to
protected calls only. [Manager] drives the session state machine
(SignedOut, Authenticating, Authenticated) on top of a [TokenStore].
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/jetstream/internal/platform/constants"
)

// # Wire Types

// User is the account summary returned by authentication endpoints.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenPair is the token material returned by the API.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// AuthResponse is returned by register, login and social.
type AuthResponse struct {
	User User `json:"user"`
	TokenPair
}

// Profile is the caller's account as returned by /users/profile.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatar_url"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileUpdate is a partial profile change. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// # Errors

var (
	// ErrNotSignedIn is returned when a call needs a stored session and there is none.
	ErrNotSignedIn = errors.New("client: not signed in")

	// ErrSuperseded is returned by an attempt overtaken by a newer one or by a sign-out.
	ErrSuperseded = errors.New("client: attempt superseded")
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.Status == http.StatusUnauthorized
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// # Endpoints

type endpoint struct {
	method string
	path   string
	public bool
}

var (
	endpointRegister      = endpoint{http.MethodPost, "/api/v1/auth/register", true}
	endpointLogin         = endpoint{http.MethodPost, "/api/v1/auth/login", true}
	endpointSocial        = endpoint{http.MethodPost, "/api/v1/auth/social", true}
	endpointRefresh       = endpoint{http.MethodPost, "/api/v1/auth/refresh", true}
	endpointProfile       = endpoint{http.MethodGet, "/api/v1/users/profile", false}
	endpointUpdateProfile = endpoint{http.MethodPut, "/api/v1/users/profile", false}
)

// # Client

// Client issues API requests for one device.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	appVersion string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) { client.httpClient = httpClient }
}

// WithAppVersion sets the X-App-Version header value.
func WithAppVersion(version string) Option {
	return func(client *Client) { client.appVersion = version }
}

// New creates a client for the API at baseURL that reads the access token from store.
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		appVersion: constants.AppVersion,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Register creates an email/password account.
func (client *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password, "name": name}

	var response AuthResponse
	if err := client.do(ctx, endpointRegister, body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Login authenticates with an email/password credential.
func (client *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var response AuthResponse
	if err := client.do(ctx, endpointLogin, body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Social exchanges a provider identity token for a session.
func (client *Client) Social(ctx context.Context, providerName, token string) (*AuthResponse, error) {
	body := map[string]string{"provider": providerName, "token": token}

	var response AuthResponse
	if err := client.do(ctx, endpointSocial, body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Refresh trades a refresh token for a new pair.
func (client *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var pair TokenPair
	if err := client.do(ctx, endpointRefresh, body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Profile fetches the signed-in user's profile.
func (client *Client) Profile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := client.do(ctx, endpointProfile, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies a partial profile change.
func (client *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	var profile Profile
	if err := client.do(ctx, endpointUpdateProfile, update, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (client *Client) do(ctx context.Context, target endpoint, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("request_encode_failed: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, target.method, client.baseURL+target.path, reader)
	if err != nil {
		return fmt.Errorf("request_build_failed: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set(constants.HeaderAppVersion, client.appVersion)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	// Public endpoints never carry the bearer, even when a session exists.
	if !target.public {
		session, found, err := client.store.Load()
		if err != nil {
			return err
		}
		if found {
			request.Header.Set(constants.HeaderAuthorization, "Bearer "+session.AccessToken)
		}
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request_failed: %w", err)
	}
	defer response.Body.Close()

	var decoded envelope
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return &APIError{Status: response.StatusCode, Code: "INVALID_RESPONSE", Message: http.StatusText(response.StatusCode)}
	}

	if response.StatusCode >= 400 || !decoded.Success {
		apiError := &APIError{Status: response.StatusCode, Code: "UNKNOWN", Message: http.StatusText(response.StatusCode)}
		if decoded.Error != nil {
			apiError.Code = decoded.Error.Code
			apiError.Message = decoded.Error.Message
		}
		return apiError
	}

	if out == nil || len(decoded.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("response_decode_failed: %w", err)
	}
	return nil
}
