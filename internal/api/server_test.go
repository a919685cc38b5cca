// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/jetstream/internal/api"
	"github.com/taibuivan/jetstream/internal/client"
	"github.com/taibuivan/jetstream/internal/identity/provider"
	"github.com/taibuivan/jetstream/internal/platform/config"
	"github.com/taibuivan/jetstream/internal/platform/metrics"
	"github.com/taibuivan/jetstream/internal/platform/sec"
	"github.com/taibuivan/jetstream/internal/users/account"
	"github.com/taibuivan/jetstream/internal/users/auth"
)

// clock is a settable time source shared by every component under test.
type clock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

type failingChecker struct{}

func (failingChecker) Name() string { return "postgres" }
func (failingChecker) Check(context.Context) error { return errors.New("connection refused") }

type stack struct {
	router   http.Handler
	clock    *clock
	registry *prometheus.Registry
}

func newStack(t *testing.T, checkers ...api.Checker) *stack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	now := &clock{current: time.Unix(1_700_000_000, 0)}
	tokens, err := sec.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), "jetstream", sec.WithClock(now.Now))
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	repository := auth.NewMemoryUserRepository()

	authService := auth.NewService(repository, tokens, provider.NewRegistry(), auth.WithRecorder(collector))
	liveness, readiness := api.NewHealthHandlers(slog.New(slog.NewTextHandler(io.Discard, nil)), checkers...)

	cfg := &config.Config{CORSOrigin: "*", RateLimitRPS: 1000, RateLimitBurst: 1000}
	router := api.NewRouter(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), tokens, collector, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(account.NewService(repository)),
	})

	return &stack{router: router, clock: now, registry: registry}
}

func (s *stack) call(t *testing.T, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	request := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, request)

	var decoded map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &decoded)
	return recorder.Code, decoded
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	payload, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data member: %v", body)
	return payload
}

/*
TestScenario_RegisterRefreshExpire walks a session through registration,
refresh and access token expiry.
*/
func TestScenario_RegisterRefreshExpire(t *testing.T) {
	s := newStack(t)

	status, body := s.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "A@X.com", "password": "password1", "name": "Ann",
	})
	require.Equal(t, http.StatusCreated, status)
	registered := data(t, body)
	assert.Equal(t, float64(900), registered["expiresIn"])
	user := registered["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])

	original := registered["accessToken"].(string)

	status, body = s.call(t, http.MethodGet, "/api/v1/users/profile", original, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, user["id"], data(t, body)["id"])

	status, body = s.call(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": registered["refreshToken"].(string),
	})
	require.Equal(t, http.StatusOK, status)
	refreshed := data(t, body)
	assert.NotContains(t, refreshed, "user")

	s.clock.Advance(901 * time.Second)

	status, body = s.call(t, http.MethodGet, "/api/v1/users/profile", original, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	status, _ = s.call(t, http.MethodGet, "/api/v1/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

/*
TestRouter_PublicRoutesIgnoreBearer keeps auth routes reachable with a stale token.
*/
func TestRouter_PublicRoutesIgnoreBearer(t *testing.T) {
	s := newStack(t)

	status, _ := s.call(t, http.MethodPost, "/api/v1/auth/register", "garbage", map[string]string{
		"email": "a@x.com", "password": "password1", "name": "Ann",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = s.call(t, http.MethodPost, "/api/v1/auth/social", "", map[string]string{
		"provider": "google", "token": "id-token",
	})
	assert.Equal(t, http.StatusNotImplemented, status)
}

/*
TestRouter_Probes covers the infrastructure endpoints.
*/
func TestRouter_Probes(t *testing.T) {
	healthy := newStack(t)

	status, _ := healthy.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := healthy.call(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", data(t, body)["status"])

	degraded := newStack(t, failingChecker{})
	status, body = degraded.call(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", data(t, body)["status"])

	healthy.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@x.com", "password": "password1",
	})

	recorder := httptest.NewRecorder()
	healthy.router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `jetstream_auth_attempts_total{method="login",outcome="rejected"} 1`)
	assert.Contains(t, recorder.Body.String(), `jetstream_http_responses_total{status_code="401"} 1`)
}

/*
TestClient_AgainstRouter drives the device session manager through the real API.
*/
func TestClient_AgainstRouter(t *testing.T) {
	s := newStack(t)
	server := httptest.NewServer(s.router)
	t.Cleanup(server.Close)

	store := client.NewMemoryStore()
	manager, err := client.NewManager(client.New(server.URL, store, client.WithHTTPClient(server.Client())), store)
	require.NoError(t, err)

	ctx := context.Background()
	user, err := manager.Register(ctx, "a@x.com", "password1", "Ann")
	require.NoError(t, err)
	assert.Equal(t, client.StateAuthenticated, manager.State())

	name := "Ann B"
	profile, err := manager.UpdateProfile(ctx, client.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "Ann B", profile.Name)
	assert.Equal(t, "email", profile.AuthProvider)

	s.clock.Advance(901 * time.Second)
	_, err = manager.Profile(ctx)
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, client.StateAuthenticated, manager.State())

	require.NoError(t, manager.Refresh(ctx))
	profile, err = manager.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", profile.Name)

	require.NoError(t, manager.SignOut())
	_, err = manager.Login(ctx, "a@x.com", "wrong-password")
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, client.StateSignedOut, manager.State())
}
