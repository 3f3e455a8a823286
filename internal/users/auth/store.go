// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Lookups only ever return active accounts; a deactivated account behaves as if
// it did not exist and yields NOT_FOUND.
type UserRepository interface {

	// FindByID returns the active account with the given id.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the active account registered with email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	/*
		FindByResetToken returns the active account holding the reset fingerprint,
		provided the reset window is still open at now.

		Parameters:
		  - ctx: context.Context
		  - fingerprint: string (SHA-256 hex of the raw token)
		  - now: time.Time

		Returns:
		  - *User: The matching account
		  - error: NOT_FOUND when no open reset matches
	*/
	FindByResetToken(ctx context.Context, fingerprint string, now time.Time) (*User, error)

	// Create persists a new account. A taken email yields CONFLICT.
	Create(ctx context.Context, user *User) error

	// UpdatePassword stores a new hash and change time and clears any pending reset.
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error

	// SetResetToken records a pending reset.
	SetResetToken(ctx context.Context, id, fingerprint string, expiresAt time.Time) error

	// ClearResetToken discards a pending reset.
	ClearResetToken(ctx context.Context, id string) error
}
