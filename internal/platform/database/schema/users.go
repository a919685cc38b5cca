// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables, columns and constraints shared by the
// migrations and the Postgres repositories.
package schema

import "strings"

// UsersTable represents the 'users' table
type UsersTable struct {
	Table        string
	ID           string
	Email        string
	PasswordHash string
	ExternalUID  string
	AuthProvider string
	Name         string
	AvatarURL    string
	CreatedAt    string
	UpdatedAt    string

	// Unique constraint names, as reported by SQLSTATE 23505.
	EmailKey       string
	ExternalUIDKey string
}

// Users is the schema definition for users
var Users = UsersTable{
	Table:        "users",
	ID:           "id",
	Email:        "email",
	PasswordHash: "password_hash",
	ExternalUID:  "external_uid",
	AuthProvider: "auth_provider",
	Name:         "name",
	AvatarURL:    "avatar_url",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",

	EmailKey:       "users_email_key",
	ExternalUIDKey: "users_external_uid_key",
}

// Columns returns all standard column names
func (t UsersTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.PasswordHash, t.ExternalUID, t.AuthProvider,
		t.Name, t.AvatarURL, t.CreatedAt, t.UpdatedAt,
	}
}

// SelectList returns the column list joined for a SELECT clause.
func (t UsersTable) SelectList() string {
	return strings.Join(t.Columns(), ", ")
}
