// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/jetstream/internal/platform/database/schema"
	"github.com/taibuivan/jetstream/internal/platform/dberr"
	"github.com/taibuivan/jetstream/pkg/uuid"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
//
// Storage errors pass through [dberr.Classify], so callers only ever see
// dberr sentinels or wrapped connectivity failures.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool, now: time.Now}
}

var (
	users = schema.Users

	selectUser = fmt.Sprintf("SELECT %s FROM %s", users.SelectList(), users.Table)
)

// scanUser hydrates a User from a row selected with [schema.UsersTable.Columns].
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	var externalUID *string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&externalUID,
		&user.AuthProvider,
		&user.Name,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Classify(err)
	}

	if externalUID != nil {
		user.ExternalUID = *externalUID
	}
	return user, nil
}

// nullable maps the empty string to SQL NULL so the unique index ignores it.
func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

/*
FindByID retrieves a user record by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {

	// A malformed id can never match and would otherwise fail the uuid cast.
	if !uuid.IsValid(id) {
		return nil, dberr.ErrNotFound
	}

	query := selectUser + " WHERE " + users.ID + " = $1"
	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}
	return user, nil
}

/*
FindByEmail retrieves a user record by normalized email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := selectUser + " WHERE " + users.Email + " = $1"
	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}
	return user, nil
}

/*
FindByExternalUID retrieves the user bound to a provider identity.

Parameters:
  - context: context.Context
  - externalUID: string

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByExternalUID(context context.Context, externalUID string) (*User, error) {
	if externalUID == "" {
		return nil, dberr.ErrNotFound
	}

	query := selectUser + " WHERE " + users.ExternalUID + " = $1"
	user, err := scanUser(repository.pool.QueryRow(context, query, externalUID))
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_external_uid_failed: %w", err)
	}
	return user, nil
}

/*
Create persists a new user record.

Description: Initializes timestamps when absent. A concurrent insert for the
same email or external UID surfaces as dberr.ErrUniqueViolation.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: dberr.ErrUniqueViolation or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		users.Table, strings.Join(users.Columns(), ", "),
	)

	now := repository.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		nullable(user.ExternalUID),
		user.AuthProvider,
		user.Name,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_failed: %w", dberr.Classify(err))
	}

	return nil
}

/*
LinkExternalUID binds a provider identity to an existing account.

Parameters:
  - context: context.Context
  - userID: string
  - externalUID: string

Returns:
  - *User: The linked account
  - error: dberr.ErrUniqueViolation, dberr.ErrNotFound or execution errors
*/
func (repository *PostgresUserRepository) LinkExternalUID(context context.Context, userID, externalUID string) (*User, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 RETURNING %s",
		users.Table, users.ExternalUID, users.UpdatedAt, users.ID, users.SelectList(),
	)

	user, err := scanUser(repository.pool.QueryRow(context, query, userID, externalUID, repository.now()))
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_link_failed: %w", err)
	}
	return user, nil
}

/*
UpdateProfile applies a partial profile update.

Description: COALESCE keeps columns whose parameter is NULL, so absent fields
stay untouched in a single round trip.

Parameters:
  - context: context.Context
  - userID: string
  - update: ProfileUpdate

Returns:
  - *User: The updated account
  - error: dberr.ErrNotFound or execution errors
*/
func (repository *PostgresUserRepository) UpdateProfile(context context.Context, userID string, update ProfileUpdate) (*User, error) {
	if !uuid.IsValid(userID) {
		return nil, dberr.ErrNotFound
	}

	query := fmt.Sprintf(
		"UPDATE %[1]s SET %[2]s = COALESCE($2, %[2]s), %[3]s = COALESCE($3, %[3]s), %[4]s = $4 WHERE %[5]s = $1 RETURNING %[6]s",
		users.Table, users.Name, users.AvatarURL, users.UpdatedAt, users.ID, users.SelectList(),
	)

	user, err := scanUser(repository.pool.QueryRow(context, query, userID, update.Name, update.AvatarURL, repository.now()))
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_update_profile_failed: %w", err)
	}
	return user, nil
}
