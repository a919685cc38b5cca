// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/jetstream/internal/users/auth"
)

func post(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func newRoutes(t *testing.T) http.Handler {
	t.Helper()
	return auth.NewHandler(newTestService(t, auth.NewMemoryUserRepository(), nil)).Routes()
}

/*
TestHandler_Register returns the session envelope with a 201.
*/
func TestHandler_Register(t *testing.T) {
	routes := newRoutes(t)

	recorder := post(t, routes, "/register", `{"email":"a@x.com","password":"password1","name":"Ann"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			User struct {
				ID    string `json:"id"`
				Email string `json:"email"`
				Name  string `json:"name"`
			} `json:"user"`
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
			ExpiresIn    int    `json:"expiresIn"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Data.User.ID)
	assert.Equal(t, "a@x.com", body.Data.User.Email)
	assert.Equal(t, "Ann", body.Data.User.Name)
	assert.NotEmpty(t, body.Data.AccessToken)
	assert.NotEmpty(t, body.Data.RefreshToken)
	assert.Equal(t, 900, body.Data.ExpiresIn)
	assert.NotContains(t, recorder.Body.String(), "password")

	conflict := post(t, routes, "/register", `{"email":"a@x.com","password":"password1","name":"Ann"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

/*
TestHandler_RegisterValidation rejects malformed input with 422.
*/
func TestHandler_RegisterValidation(t *testing.T) {
	routes := newRoutes(t)

	tests := map[string]string{
		"bad_email":      `{"email":"not-an-email","password":"password1","name":"Ann"}`,
		"short_password": `{"email":"a@x.com","password":"short","name":"Ann"}`,
		"blank_name":     `{"email":"a@x.com","password":"password1","name":"  "}`,
		"long_password":  `{"email":"a@x.com","password":"` + strings.Repeat("p", 80) + `","name":"Ann"}`,
		"invalid_json":   `{"email":`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			recorder := post(t, routes, "/register", body)
			assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
			assert.Contains(t, recorder.Body.String(), `"code":"VALIDATION_ERROR"`)
		})
	}
}

/*
TestHandler_LoginFailuresAreIdentical compares the raw response bodies.
*/
func TestHandler_LoginFailuresAreIdentical(t *testing.T) {
	routes := newRoutes(t)
	require.Equal(t, http.StatusCreated,
		post(t, routes, "/register", `{"email":"a@x.com","password":"password1","name":"Ann"}`).Code)

	unknown := post(t, routes, "/login", `{"email":"b@x.com","password":"password1"}`)
	wrong := post(t, routes, "/login", `{"email":"a@x.com","password":"password2"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())

	ok := post(t, routes, "/login", `{"email":"a@x.com","password":"password1"}`)
	assert.Equal(t, http.StatusOK, ok.Code)
}

/*
TestHandler_SocialAndRefresh covers the remaining public endpoints.
*/
func TestHandler_SocialAndRefresh(t *testing.T) {
	routes := newRoutes(t)

	social := post(t, routes, "/social", `{"provider":"google","token":"opaque"}`)
	assert.Equal(t, http.StatusNotImplemented, social.Code)
	assert.Contains(t, social.Body.String(), `"code":"NOT_IMPLEMENTED"`)

	missing := post(t, routes, "/social", `{"provider":"google"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, missing.Code)

	noToken := post(t, routes, "/refresh", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, noToken.Code)

	bad := post(t, routes, "/refresh", `{"refresh_token":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
	assert.Contains(t, bad.Body.String(), `"code":"UNAUTHORIZED"`)
}
