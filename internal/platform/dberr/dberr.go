// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/jetstream/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = errors.New("dberr: not found")

	// ErrUniqueViolation is returned when an insert or update hits a unique constraint.
	ErrUniqueViolation = errors.New("dberr: unique violation")
)

// UniqueViolation carries the name of the violated constraint.
type UniqueViolation struct {
	Constraint string
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("dberr: unique violation on %q", e.Constraint)
}

// Is lets callers match any [UniqueViolation] with [ErrUniqueViolation].
func (e *UniqueViolation) Is(target error) bool {
	return target == ErrUniqueViolation
}

// Classify maps driver errors onto the sentinels of this package.
// Errors it does not recognize are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Unique constraint (SQLSTATE 23505)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &UniqueViolation{Constraint: pgErr.ConstraintName}
	}

	return err
}

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	classified := Classify(err)
	switch {
	case errors.Is(classified, ErrNotFound):
		return apperr.NotFound(resource)
	case errors.Is(classified, ErrUniqueViolation):
		return apperr.Conflict(resource + " already exists")
	default:
		return apperr.Internal(err)
	}
}
