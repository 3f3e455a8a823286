// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/middleware"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/resource"
	"github.com/taibuivan/trailhead/internal/platform/respond"
	"github.com/taibuivan/trailhead/internal/platform/sec"
)

// Handler implements the HTTP layer for member profiles.
type Handler struct {
	service *Service
	admin   *resource.Factory
	protect pipeline.Stage
}

// NewHandler constructs the account [Handler]. protect is the session stage
// that attaches the caller's principal.
func NewHandler(service *Service, protect pipeline.Stage) *Handler {
	admin := resource.New(service.users, resource.WithPrepare(
		func(_ context.Context, document, _ docstore.Document) error {
			return NormalizeEmail(document)
		},
	))
	return &Handler{service: service, admin: admin, protect: protect}
}

/*
Register mounts the profile routes on router (the /users prefix).

Every route requires a session. The collection routes additionally require the
admin role.
*/
func (handler *Handler) Register(router chi.Router, base *pipeline.Chain) {
	member := base.With(handler.protect)
	admin := member.With(middleware.RestrictTo(sec.RoleAdmin))

	// Self-service
	router.Method(http.MethodGet, "/me", member.With(pipeline.Terminal(handler.getMe)))
	router.Method(http.MethodPatch, "/updateMe", member.With(pipeline.Terminal(handler.updateMe)))
	router.Method(http.MethodDelete, "/deleteMe", member.With(pipeline.Terminal(handler.deleteMe)))

	// Administration
	router.Method(http.MethodGet, "/", admin.With(handler.admin.GetAll()))
	router.Method(http.MethodPost, "/", admin.With(pipeline.Guard(func(*pipeline.Exchange) error {
		return apperr.BadRequest(msgUseSignup)
	})))
	router.Method(http.MethodGet, "/{id}", admin.With(handler.admin.GetOne()))
	router.Method(http.MethodPatch, "/{id}", admin.With(handler.admin.UpdateOne()))
	router.Method(http.MethodDelete, "/{id}", admin.With(handler.admin.DeleteOne()))
}

// # Self-Service Endpoints

/*
GET /api/v1/users/me.

Response:
  - 200: The caller's public profile
  - 401: Not logged in
*/
func (handler *Handler) getMe(exchange *pipeline.Exchange) error {
	user, err := handler.service.Me(exchange.Context(), exchange.Principal.ID)
	if err != nil {
		return err
	}
	respond.OK(exchange.Writer, user)
	return nil
}

/*
PATCH /api/v1/users/updateMe.

Request:
  - body: {name?, email?}

Response:
  - 200: The updated profile
  - 400: Password fields present, or invalid values
*/
func (handler *Handler) updateMe(exchange *pipeline.Exchange) error {
	user, err := handler.service.UpdateMe(exchange.Context(), exchange.Principal.ID, exchange.Body)
	if err != nil {
		return err
	}
	respond.OK(exchange.Writer, user)
	return nil
}

// DELETE /api/v1/users/deleteMe deactivates the account and responds 204.
func (handler *Handler) deleteMe(exchange *pipeline.Exchange) error {
	if err := handler.service.DeleteMe(exchange.Context(), exchange.Principal.ID); err != nil {
		return err
	}
	respond.NoContent(exchange.Writer)
	return nil
}
