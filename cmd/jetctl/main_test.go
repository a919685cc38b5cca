// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":"u1","email":"a@x.com","name":"Ann"},"accessToken":"a1","refreshToken":"r1","expiresIn":900}}`))
		case "/api/v1/users/profile":
			if r.Header.Get("Authorization") != "Bearer a1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"Invalid or expired token"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":"u1","email":"a@x.com","name":"Ann","auth_provider":"email"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

/*
TestRun_LoginProfileLogout persists the session across invocations.
*/
func TestRun_LoginProfileLogout(t *testing.T) {
	server := newAPI(t)
	t.Setenv("JETSTREAM_API_URL", server.URL)
	t.Setenv("JETSTREAM_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))

	invoke := func(args ...string) (int, string, string) {
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), args, &stdout, &stderr)
		return code, stdout.String(), stderr.String()
	}

	code, out, _ := invoke("login", "-email", "a@x.com", "-password", "password1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"id": "u1"`)

	code, out, _ = invoke("profile")
	require.Equal(t, 0, code)
	var profile map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, "email", profile["auth_provider"])

	code, out, _ = invoke("status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"state": "authenticated"`)
	assert.Contains(t, out, `"access_token_expired": false`)

	code, _, _ = invoke("logout")
	require.Equal(t, 0, code)

	code, _, errOut := invoke("profile")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not signed in")
}

/*
TestRun_Usage rejects missing and unknown commands.
*/
func TestRun_Usage(t *testing.T) {
	t.Setenv("JETSTREAM_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Equal(t, 1, run(context.Background(), []string{"fly"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "fly"`)
}
