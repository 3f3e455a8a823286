// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/constants"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
)

// # Session Stages

// Protect requires a valid session and attaches its principal to the exchange.
//
// # Flow
//  1. Read the token from "Authorization: Bearer" or the session cookie.
//  2. Verify signature and expiry.
//  3. Load the account; it must still exist and be active.
//  4. Reject tokens issued before the last password change.
func (service *Service) Protect() pipeline.Stage {
	return pipeline.Guard(func(exchange *pipeline.Exchange) error {
		token := TokenFromRequest(exchange.Request)
		if token == "" {
			return apperr.Unauthorized(msgNotLoggedIn)
		}

		user, err := service.Authenticate(exchange.Context(), token)
		if err != nil {
			return err
		}

		exchange.Authenticate(user.Principal())
		return nil
	})
}

// IsLoggedIn attaches the principal when the request carries a valid session and
// otherwise continues anonymously. It never fails the request.
func (service *Service) IsLoggedIn() pipeline.Stage {
	return func(exchange *pipeline.Exchange) (pipeline.Flow, error) {
		token := TokenFromRequest(exchange.Request)
		if token == "" {
			return pipeline.Next, nil
		}

		user, err := service.Authenticate(exchange.Context(), token)
		if err != nil {
			if appErr := apperr.As(err); appErr == nil || !appErr.Operational {
				exchange.Logger().WarnContext(exchange.Context(), "auth_is_logged_in_lookup_failed",
					slog.Any("error", err),
				)
			}
			return pipeline.Next, nil
		}

		exchange.Authenticate(user.Principal())
		return pipeline.Next, nil
	}
}

// TokenFromRequest extracts the session token. The bearer header wins over the
// cookie, and the logout placeholder counts as no token.
func TokenFromRequest(request *http.Request) string {
	if header := request.Header.Get(constants.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil || cookie.Value == constants.LoggedOutCookieValue {
		return ""
	}
	return cookie.Value
}
