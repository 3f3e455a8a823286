// Copyright (c) 2026 Yomira. All rights reserved.
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

	"github.com/taibuivan/trailhead/internal/platform/apperr"
)

// MsgNotFound is the client message for a missing record.
const MsgNotFound = "No document found with that ID"

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// # Mapping
//   - pgx.ErrNoRows: NOT_FOUND
//   - unique_violation: CONFLICT naming the constraint's field when known
//   - check, not-null, foreign-key and text-representation violations: VALIDATION_ERROR
//   - anything else: INTERNAL_ERROR with action as context
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(MsgNotFound).WithCause(err)
	}

	// 2. Constraint violations reported by PostgreSQL
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(duplicateMessage(pgErr)).WithCause(err)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return apperr.ValidationError(fmt.Sprintf("Invalid input data: %s", violatedName(pgErr))).WithCause(err)
		case pgerrcode.ForeignKeyViolation:
			return apperr.ValidationError("Referenced document does not exist").WithCause(err)
		case pgerrcode.InvalidTextRepresentation:
			return apperr.ValidationError("Invalid identifier").WithCause(err)
		}
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// duplicateMessage names the conflicting constraint in a client-safe way.
func duplicateMessage(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName == "" {
		return "Duplicate field value. Please use another value!"
	}
	return fmt.Sprintf("Duplicate field value for %s. Please use another value!", pgErr.ConstraintName)
}

// violatedName returns the constraint or column that rejected the row.
func violatedName(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return pgErr.ColumnName
}
