// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements signup, login and password management, together with
the protect and isLoggedIn pipeline stages.

Architecture:

  - Service: Orchestrates credential checks, token issuance and reset mail.
  - UserRepository: Account persistence, implemented on PostgreSQL.
  - Guard: Resolves the session token of a request into a [sec.Principal].

Sessions are stateless RS256 tokens delivered both in the response body and in
an HttpOnly cookie. A password change invalidates every token issued before it.
*/
package auth

import (
	"time"

	"github.com/taibuivan/trailhead/internal/platform/sec"
)

// # Domain Entities

// DefaultPhoto is assigned to accounts that never uploaded a picture.
const DefaultPhoto = "default.jpg"

// User is a registered account, including its credential state.
type User struct {
	ID                string
	Name              string
	Email             string
	Photo             string
	Role              sec.UserRole
	PasswordHash      string
	PasswordChangedAt *time.Time
	ResetTokenHash    *string
	ResetExpiresAt    *time.Time
	Active            bool
	CreatedAt         time.Time
}

// PublicUser is the client-facing projection of a [User].
type PublicUser struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Photo     string       `json:"photo"`
	Role      sec.UserRole `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Public strips credential state from the user.
func (user *User) Public() PublicUser {
	return PublicUser{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Photo:     user.Photo,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// Principal converts the user into the identity attached to requests.
func (user *User) Principal() *sec.Principal {
	return &sec.Principal{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Photo: user.Photo,
		Role:  user.Role,
	}
}

// ChangedPasswordAfter reports whether the password was changed after issuedAt.
func (user *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	return user.PasswordChangedAt != nil && user.PasswordChangedAt.After(issuedAt)
}

// # Field Identifiers

// JSON field names used in request bodies and validation details.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPasswordConfirm = "passwordConfirm"
	FieldPasswordCurrent = "passwordCurrent"
	FieldUser            = "user"
)
