// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/taibuivan/jetstream/internal/platform/dberr"
	"github.com/taibuivan/jetstream/internal/users/auth"
)

// profileResource names the resource in NotFound messages.
const profileResource = "User"

// # Service Layer

// Service implements profile reads and edits.
type Service struct {
	accountRepository AccountRepository
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(accountRepo AccountRepository) *Service {
	return &Service{accountRepository: accountRepo}
}

/*
GetProfile retrieves the private profile of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *Profile: The profile view
  - error: NotFound or Internal
*/
func (service *Service) GetProfile(context context.Context, userID string) (*Profile, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, dberr.Wrap(fmt.Errorf("account_service_get_profile_failed: %w", err), profileResource)
	}
	return newProfile(user), nil
}

// UpdateProfileInput defines the mutable subset of profile fields. Nil means unchanged.
type UpdateProfileInput struct {
	Name      *string
	AvatarURL *string
}

/*
UpdateProfile applies a partial set of changes to a user's profile.

Description: An input with no fields returns the current profile unchanged.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *Profile: The profile after the update
  - error: NotFound or Internal
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*Profile, error) {
	update := auth.ProfileUpdate{Name: input.Name, AvatarURL: input.AvatarURL}
	if update.IsEmpty() {
		return service.GetProfile(context, userID)
	}

	user, err := service.accountRepository.UpdateProfile(context, userID, update)
	if err != nil {
		return nil, dberr.Wrap(fmt.Errorf("account_service_update_profile_failed: %w", err), profileResource)
	}
	return newProfile(user), nil
}
