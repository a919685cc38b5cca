// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/jetstream/internal/platform/request"
	"github.com/taibuivan/jetstream/internal/platform/respond"
	"github.com/taibuivan/jetstream/internal/platform/validate"
)

// Handler implements the HTTP layer for the caller's profile.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] with the profile endpoints.
// The caller mounts it behind the Authenticate middleware.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/profile", handler.getProfile)
	router.Put("/profile", handler.updateProfile)

	return router
}

/*
GET /api/v1/users/profile.

Response:
  - 200: Profile: The caller's profile
  - 401: Unauthorized: Authentication required
  - 404: NotFound: Account no longer exists
*/
func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// updateProfileRequest is the partial update payload. Absent fields stay unchanged.
type updateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

/*
PUT /api/v1/users/profile.

Request:
  - Body: updateProfileRequest (Partial JSON)

Response:
  - 200: Profile: The updated profile
  - 422: ValidationError: Blank name or non-http(s) avatar URL
  - 401: Unauthorized: Authentication required
  - 404: NotFound: Account no longer exists
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		input.Name = &trimmed
		validator.Custom("name", trimmed == "", "Must not be empty").
			MaxLen("name", trimmed, 100)
	}
	if input.AvatarURL != nil {
		validator.URL("avatar_url", *input.AvatarURL)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.UpdateProfile(request.Context(), userID, UpdateProfileInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}
