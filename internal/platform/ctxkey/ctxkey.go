// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines the typed context keys shared by middleware and handlers.
//
// Keys use an unexported type, so values stored here cannot be read or
// overwritten through a plain string key from another package.
package ctxkey

type key string

const (
	// KeyRequestID holds the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyUser holds the verified access token claims ([sec.AuthClaims]).
	KeyUser key = "auth_claims"

	// KeyLogger holds the per-request [*log/slog.Logger].
	KeyLogger key = "logger"

	// KeyIdentityHolder holds the slot through which the authentication gate
	// reports the caller's user ID to the request logger.
	KeyIdentityHolder key = "identity_holder"
)
