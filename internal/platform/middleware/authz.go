// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/sec"
)

// Authorization failure messages.
const (
	msgAuthenticationRequired = "You are not logged in! Please log in to get access."
	msgPermissionDenied       = "You do not have permission to perform this action"
)

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be placed in the chain AFTER the authentication stage.
func RequireAuth() pipeline.Stage {
	return pipeline.Guard(func(exchange *pipeline.Exchange) error {
		if exchange.Principal == nil {
			return apperr.Unauthorized(msgAuthenticationRequired)
		}
		return nil
	})
}

// RestrictTo blocks requests whose principal holds none of the given roles.
//
// # Flow
//  1. No principal on the exchange: 401, the caller is unauthenticated rather than unauthorized.
//  2. Principal role outside the allowed set: 403 Forbidden.
func RestrictTo(roles ...sec.UserRole) pipeline.Stage {
	return pipeline.Guard(func(exchange *pipeline.Exchange) error {

		// ── 1. Authentication Check ───────────────────────────────────────
		if exchange.Principal == nil {
			return apperr.Unauthorized(msgAuthenticationRequired)
		}

		// ── 2. Role Membership ────────────────────────────────────────────
		if !exchange.Principal.Role.In(roles...) {
			return apperr.Forbidden(msgPermissionDenied)
		}

		return nil
	})
}
