// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/jetstream/internal/platform/apperr"
	"github.com/taibuivan/jetstream/internal/platform/ctxutil"
	"github.com/taibuivan/jetstream/internal/platform/sec"
	"github.com/taibuivan/jetstream/internal/users/account"
	"github.com/taibuivan/jetstream/internal/users/auth"
)

func seedUser(t *testing.T, repository *auth.MemoryUserRepository) *auth.User {
	t.Helper()
	user := &auth.User{
		ID:           "0190a6a0-0000-7000-8000-000000000001",
		Email:        "a@x.com",
		AuthProvider: auth.ProviderEmail,
		Name:         "Ann",
	}
	require.NoError(t, repository.Create(context.Background(), user))
	return user
}

// asUser injects verified claims the way the Authenticate middleware does.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &sec.AuthClaims{UserID: userID, Email: "a@x.com", Type: sec.TokenAccess}
			next.ServeHTTP(w, r.WithContext(ctxutil.WithAuthUser(r.Context(), claims)))
		})
	}
}

func newRouter(repository *auth.MemoryUserRepository, userID string) http.Handler {
	router := chi.NewRouter()
	router.Use(asUser(userID))
	router.Mount("/users", account.NewHandler(account.NewService(repository)).Routes())
	return router
}

type profileEnvelope struct {
	Success bool            `json:"success"`
	Data    account.Profile `json:"data"`
}

func do(t *testing.T, handler http.Handler, method, body string) (*httptest.ResponseRecorder, profileEnvelope) {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(method, "/users/profile", strings.NewReader(body)))

	var envelope profileEnvelope
	if recorder.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	}
	return recorder, envelope
}

/*
TestProfile_GetAndPartialUpdate walks the read, partial write and empty write paths.
*/
func TestProfile_GetAndPartialUpdate(t *testing.T) {
	repository := auth.NewMemoryUserRepository()
	user := seedUser(t, repository)
	router := newRouter(repository, user.ID)

	recorder, got := do(t, router, http.MethodGet, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, user.ID, got.Data.ID)
	assert.Equal(t, "Ann", got.Data.Name)
	assert.Equal(t, "email", got.Data.AuthProvider)
	assert.NotContains(t, recorder.Body.String(), "password")

	recorder, got = do(t, router, http.MethodPut, `{"avatar_url":"https://img.example/a.png"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Ann", got.Data.Name)
	assert.Equal(t, "https://img.example/a.png", got.Data.AvatarURL)

	recorder, got = do(t, router, http.MethodPut, `{"name":"  Ann B  "}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Ann B", got.Data.Name)
	assert.Equal(t, "https://img.example/a.png", got.Data.AvatarURL)

	recorder, got = do(t, router, http.MethodPut, `{}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Ann B", got.Data.Name)
}

/*
TestProfile_Failures covers validation, missing accounts and anonymous calls.
*/
func TestProfile_Failures(t *testing.T) {
	repository := auth.NewMemoryUserRepository()
	user := seedUser(t, repository)
	router := newRouter(repository, user.ID)

	recorder, _ := do(t, router, http.MethodPut, `{"name":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	recorder, _ = do(t, router, http.MethodPut, `{"avatar_url":"javascript:alert(1)"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	ghost := newRouter(repository, "0190a6a0-0000-7000-8000-00000000dead")
	recorder, _ = do(t, ghost, http.MethodGet, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	anonymous := chi.NewRouter()
	anonymous.Mount("/users", account.NewHandler(account.NewService(repository)).Routes())
	recorder, _ = do(t, anonymous, http.MethodGet, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestService_UpdateMissing maps a vanished account to NotFound.
*/
func TestService_UpdateMissing(t *testing.T) {
	service := account.NewService(auth.NewMemoryUserRepository())
	name := "Ann"

	_, err := service.UpdateProfile(context.Background(), "missing", account.UpdateProfileInput{Name: &name})
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}
