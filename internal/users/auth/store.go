// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "context"

// ProfileUpdate carries the optional mutable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
}

// IsEmpty reports whether the update changes nothing.
func (update ProfileUpdate) IsEmpty() bool {
	return update.Name == nil && update.AvatarURL == nil
}

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Implementations must enforce uniqueness of email and of non-empty external
// UIDs. Violations are reported as [dberr.ErrUniqueViolation] and missing rows
// as [dberr.ErrNotFound].
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given normalized email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or storage failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByExternalUID returns the account bound to a provider identity.

		Parameters:
		  - context: context.Context
		  - externalUID: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or storage failures
	*/
	FindByExternalUID(context context.Context, externalUID string) (*User, error)

	/*
		Create persists a brand-new user account.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: dberr.ErrUniqueViolation or storage failures
	*/
	Create(context context.Context, user *User) error

	/*
		LinkExternalUID binds a provider identity to an existing account.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - externalUID: string

		Returns:
		  - *User: The account after linking
		  - error: dberr.ErrUniqueViolation, dberr.ErrNotFound or storage failures
	*/
	LinkExternalUID(context context.Context, userID, externalUID string) (*User, error)

	/*
		UpdateProfile applies the non-nil fields of update.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - update: ProfileUpdate

		Returns:
		  - *User: The account after the update
		  - error: dberr.ErrNotFound or storage failures
	*/
	UpdateProfile(context context.Context, userID string, update ProfileUpdate) (*User, error)
}
