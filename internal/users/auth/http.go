// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/jetstream/internal/platform/request"
	"github.com/taibuivan/jetstream/internal/platform/respond"
	"github.com/taibuivan/jetstream/internal/platform/sec"
	"github.com/taibuivan/jetstream/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the public authentication endpoints.
//
// # Scope
//
// Every route here is reachable without a bearer token. Protected routes live
// in the account package behind the Authenticate middleware.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register : Creates a password account and signs it in.
//   - POST /login    : Signs in with email and password.
//   - POST /social   : Exchanges a provider ID token for a session.
//   - POST /refresh  : Exchanges a refresh token for a new pair.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/social", handler.social)
	router.Post("/refresh", handler.refresh)

	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type socialRequest struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

/*
Register handles the creation of a new password account.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (Email, Password, Name)

Response:
  - 201: Session: User summary and token pair
  - 422: ValidationError: Bad input
  - 409: Conflict: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input.Name = strings.TrimSpace(input.Name)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		MinLen(FieldPassword, input.Password, minPasswordLength).
		Custom(FieldPassword, len(input.Password) > sec.MaxPasswordBytes, fmt.Sprintf("Maximum %d bytes", sec.MaxPasswordBytes)).
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 100)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, session)
}

/*
Login authenticates with an email and password.

POST /api/v1/auth/login

Response:
  - 200: Session: User summary and token pair
  - 422: ValidationError: Missing fields
  - 401: Unauthorized: Invalid email or password
  - 429: RateLimited: Too many failed attempts
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), PasswordCredential(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
Social exchanges a provider-issued ID token for a session.

POST /api/v1/auth/social

Response:
  - 200: Session: User summary and token pair
  - 422: ValidationError: Missing provider or token
  - 401: Unauthorized: Token rejected by the provider verifier
  - 501: NotImplemented: Provider not configured
*/
func (handler *Handler) social(writer http.ResponseWriter, request *http.Request) {
	var input socialRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldProvider, input.Provider).
		Required(FieldToken, input.Token)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Social(request.Context(), input.Provider, input.Token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
Refresh issues a new token pair from a valid refresh token.

POST /api/v1/auth/refresh

Response:
  - 200: TokenPair: Fresh access and refresh tokens
  - 422: ValidationError: Missing refresh_token
  - 401: Unauthorized: Invalid refresh token or account gone
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError(FieldRefreshToken, "This field is required"))
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}
