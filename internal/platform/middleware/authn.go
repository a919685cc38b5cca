// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/jetstream/internal/platform/apperr"
	"github.com/taibuivan/jetstream/internal/platform/constants"
	"github.com/taibuivan/jetstream/internal/platform/ctxkey"
	"github.com/taibuivan/jetstream/internal/platform/ctxutil"
	"github.com/taibuivan/jetstream/internal/platform/respond"
	"github.com/taibuivan/jetstream/internal/platform/sec"
)

// unauthorizedMessage is shared by every rejection so the response never reveals
// whether the header was missing, malformed, expired or of the wrong type.
const unauthorizedMessage = "Invalid or expired token"

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// Defining TokenVerifier here decouples the middleware from [sec.TokenService],
// allowing tests to inject fakes.
type TokenVerifier interface {
	Verify(tokenString string, expectedType sec.TokenType) (*sec.AuthClaims, error)
}

// Authenticate is the gate in front of every protected route.
//
// # Flow
//  1. Require an 'Authorization: Bearer <token>' header.
//  2. Verify it as an access token via [TokenVerifier].
//  3. Inject [*sec.AuthClaims] into the request context for downstream use.
//
// Every failure produces the same 401 UNAUTHORIZED body.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, ok := bearerToken(request)
			if !ok {
				respond.Error(writer, request, apperr.Unauthorized(unauthorizedMessage))
				return
			}

			claims, err := verifier.Verify(token, sec.TokenAccess)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized(unauthorizedMessage))
				return
			}

			if holder, ok := request.Context().Value(ctxkey.KeyIdentityHolder).(*identityHolder); ok {
				holder.userID = claims.UserID
			}

			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get(constants.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// identityHolder carries the authenticated user ID back up to [StructuredLogger].
type identityHolder struct {
	userID string
}

func withIdentityHolder(ctx context.Context, holder *identityHolder) context.Context {
	return context.WithValue(ctx, ctxkey.KeyIdentityHolder, holder)
}
