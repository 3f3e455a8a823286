// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"strings"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/validate"
	"github.com/taibuivan/trailhead/pkg/query"
)

const (
	msgNoPasswordUpdates = "This route is not for password updates. Please use /updateMyPassword."
	msgUseSignup         = "This route is not defined! Please use /signup instead"
)

// passwordFields may never be changed through the profile endpoints.
var passwordFields = []string{"password", "passwordConfirm"}

// Service implements the self-service profile use cases.
type Service struct {
	users docstore.Store
}

// NewService constructs the account [Service] over the active users store.
func NewService(users docstore.Store) *Service {
	return &Service{users: users}
}

// Me returns the caller's own profile.
func (service *Service) Me(ctx context.Context, userID string) (docstore.Document, error) {
	return service.users.FindOne(ctx, byID(userID), query.Projection{})
}

/*
UpdateMe changes the caller's name and email.

Keys other than name and email are dropped silently, except the password
fields which are rejected so clients do not mistake this for a password change.

Returns:
  - docstore.Document: The updated profile
  - error: VALIDATION_ERROR, CONFLICT (email taken) or NOT_FOUND
*/
func (service *Service) UpdateMe(ctx context.Context, userID string, body map[string]any) (docstore.Document, error) {

	// ── 1. Reject Password Changes ────────────────────────────────────────
	for _, field := range passwordFields {
		if _, present := body[field]; present {
			return nil, apperr.ValidationError(msgNoPasswordUpdates)
		}
	}

	// ── 2. Keep Allowed Keys ──────────────────────────────────────────────
	payload := map[string]any{}
	for _, field := range []string{FieldName, FieldEmail} {
		if value, present := body[field]; present {
			payload[field] = value
		}
	}

	changes, err := service.users.Collection().Validate(payload, false)
	if err != nil {
		return nil, err
	}
	if err := NormalizeEmail(changes); err != nil {
		return nil, err
	}

	// ── 3. Persist ────────────────────────────────────────────────────────
	if len(changes) == 0 {
		return service.Me(ctx, userID)
	}
	return service.users.UpdateOne(ctx, byID(userID), changes)
}

// DeleteMe deactivates the caller's account. It stays in storage but is hidden
// from every read and can no longer log in.
func (service *Service) DeleteMe(ctx context.Context, userID string) error {
	_, err := service.users.UpdateOne(ctx, byID(userID), docstore.Document{FieldActive: false})
	return err
}

// NormalizeEmail lowercases and checks the email of a validated document, if present.
func NormalizeEmail(document docstore.Document) error {
	email, ok := document[FieldEmail].(string)
	if !ok {
		return nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	validator := &validate.Validator{}
	if err := validator.Email(FieldEmail, email).Err(); err != nil {
		return err
	}
	document[FieldEmail] = email
	return nil
}

func byID(id string) []query.Clause {
	return []query.Clause{query.Eq(docstore.FieldID, id)}
}
