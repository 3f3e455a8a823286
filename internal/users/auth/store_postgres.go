// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/trailhead/internal/platform/database/schema"
	"github.com/taibuivan/trailhead/internal/platform/dberr"
	"github.com/taibuivan/trailhead/internal/platform/postgres"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] on users.account.
type PostgresUserRepository struct {
	db postgres.DB
}

// NewUserRepository creates a PostgreSQL implementation of [UserRepository].
func NewUserRepository(db postgres.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// userColumns is the column list scanned by [scanUser], in order.
var userColumns = strings.Join([]string{
	schema.UserAccount.ID,
	schema.UserAccount.Name,
	schema.UserAccount.Email,
	schema.UserAccount.Photo,
	schema.UserAccount.Role,
	schema.UserAccount.PasswordHash,
	schema.UserAccount.PasswordChangedAt,
	schema.UserAccount.ResetTokenHash,
	schema.UserAccount.ResetExpiresAt,
	schema.UserAccount.IsActive,
	schema.UserAccount.CreatedAt,
}, ", ")

// selectActive selects active accounts matching an extra predicate.
func selectActive(predicate string) string {
	return fmt.Sprintf(`SELECT %s FROM %s WHERE %s = TRUE AND %s`,
		userColumns, schema.UserAccount.Table, schema.UserAccount.IsActive, predicate)
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Photo,
		&user.Role,
		&user.PasswordHash,
		&user.PasswordChangedAt,
		&user.ResetTokenHash,
		&user.ResetExpiresAt,
		&user.Active,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID implements [UserRepository].
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := selectActive(schema.UserAccount.ID + " = $1")

	user, err := scanUser(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_id_failed")
	}
	return user, nil
}

// FindByEmail implements [UserRepository].
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := selectActive(schema.UserAccount.Email + " = $1")

	user, err := scanUser(repository.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_email_failed")
	}
	return user, nil
}

// FindByResetToken implements [UserRepository].
func (repository *PostgresUserRepository) FindByResetToken(ctx context.Context, fingerprint string, now time.Time) (*User, error) {
	query := selectActive(fmt.Sprintf("%s = $1 AND %s > $2",
		schema.UserAccount.ResetTokenHash, schema.UserAccount.ResetExpiresAt))

	user, err := scanUser(repository.db.QueryRow(ctx, query, fingerprint, now))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_reset_token_failed")
	}
	return user, nil
}

/*
Create persists a new account into users.account.

Parameters:
  - ctx: context.Context
  - user: *User (ID, Role and Photo must already be set)

Returns:
  - error: CONFLICT when the email is taken, or storage errors
*/
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s, %s`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.Name, schema.UserAccount.Email,
		schema.UserAccount.Photo, schema.UserAccount.Role, schema.UserAccount.PasswordHash,
		schema.UserAccount.IsActive, schema.UserAccount.CreatedAt,
	)

	err := repository.db.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Photo,
		user.Role,
		user.PasswordHash,
	).Scan(&user.Active, &user.CreatedAt)
	if err != nil {
		return dberr.Wrap(err, "postgres_user_repo_create_failed")
	}
	return nil
}

// UpdatePassword implements [UserRepository].
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = NULL, %s = NULL, %s = NOW(), %s = %s + 1
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.PasswordHash, schema.UserAccount.PasswordChangedAt,
		schema.UserAccount.ResetTokenHash, schema.UserAccount.ResetExpiresAt,
		schema.UserAccount.UpdatedAt, schema.UserAccount.Version, schema.UserAccount.Version,
		schema.UserAccount.ID,
	)

	return repository.execOne(ctx, "postgres_user_repo_update_password_failed", query, id, passwordHash, changedAt)
}

// SetResetToken implements [UserRepository].
func (repository *PostgresUserRepository) SetResetToken(ctx context.Context, id, fingerprint string, expiresAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.ResetTokenHash, schema.UserAccount.ResetExpiresAt,
		schema.UserAccount.ID,
	)

	return repository.execOne(ctx, "postgres_user_repo_set_reset_token_failed", query, id, fingerprint, expiresAt)
}

// ClearResetToken implements [UserRepository].
func (repository *PostgresUserRepository) ClearResetToken(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = NULL, %s = NULL WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.ResetTokenHash, schema.UserAccount.ResetExpiresAt,
		schema.UserAccount.ID,
	)

	return repository.execOne(ctx, "postgres_user_repo_clear_reset_token_failed", query, id)
}

// execOne runs an update that must touch exactly one row.
func (repository *PostgresUserRepository) execOne(ctx context.Context, action, query string, args ...any) error {
	tag, err := repository.db.Exec(ctx, query, args...)
	if err != nil {
		return dberr.Wrap(err, action)
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, action)
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
