// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package resource builds the five CRUD stages shared by every document resource.

A [Factory] wraps a [docstore.Store] and produces terminal pipeline stages for
create, read-one, list, update and delete. Behaviour that differs between
resources is injected through options rather than model hooks:

  - [WithPrepare]: derived fields and cross-field checks before a write
  - [WithWriteHook]: side effects after a successful write
  - [WithParentScope]: nested routes such as /tours/{tourId}/reviews
  - [WithPrincipalField]: ownership fields set to the authenticated user
*/
package resource

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/pipeline"
	"github.com/taibuivan/trailhead/internal/platform/respond"
	"github.com/taibuivan/trailhead/pkg/pagination"
	"github.com/taibuivan/trailhead/pkg/query"
)

// ParamID is the path parameter carrying the document id.
const ParamID = "id"

// Op names the kind of write that produced a [WriteEvent].
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// WriteEvent describes a committed write. Before is nil on create and After is
// nil on delete.
type WriteEvent struct {
	Op     Op
	Before docstore.Document
	After  docstore.Document
}

// WriteHook runs after a write has been stored. Its error becomes the response.
type WriteHook func(ctx context.Context, event WriteEvent) error

// PrepareFunc adjusts a validated document before it is stored. On create
// existing is nil; on update document holds only the changes.
type PrepareFunc func(ctx context.Context, document, existing docstore.Document) error

// Option configures a [Factory].
type Option func(*Factory)

// WithWriteHook registers a hook for every create, update and delete.
func WithWriteHook(hook WriteHook) Option {
	return func(factory *Factory) { factory.hooks = append(factory.hooks, hook) }
}

// WithPrepare registers a pre-write step.
func WithPrepare(prepare PrepareFunc) Option {
	return func(factory *Factory) { factory.prepares = append(factory.prepares, prepare) }
}

// WithParentScope ties field to the path parameter param. When the parameter is
// present, lists are filtered by it and creates default field to it.
func WithParentScope(param, field string) Option {
	return func(factory *Factory) {
		factory.parents = append(factory.parents, parentScope{param: param, field: field})
	}
}

// WithPrincipalField sets field to the authenticated user's id on create. A
// value sent in the body is replaced, so callers cannot write as someone else.
func WithPrincipalField(field string) Option {
	return func(factory *Factory) { factory.principalField = field }
}

type parentScope struct {
	param string
	field string
}

// Factory produces CRUD stages for one store.
type Factory struct {
	store          docstore.Store
	hooks          []WriteHook
	prepares       []PrepareFunc
	parents        []parentScope
	principalField string
}

// New creates a factory over store.
func New(store docstore.Store, options ...Option) *Factory {
	factory := &Factory{store: store}
	for _, option := range options {
		option(factory)
	}
	return factory
}

// Store returns the underlying store.
func (factory *Factory) Store() docstore.Store {
	return factory.store
}

// # Stages

// CreateOne validates the body, stores it and responds 201 with the new document.
func (factory *Factory) CreateOne() pipeline.Stage {
	return pipeline.Terminal(func(exchange *pipeline.Exchange) error {
		ctx := exchange.Context()

		// ── 1. Fill Implied Fields ────────────────────────────────────────
		payload := make(map[string]any, len(exchange.Body)+2)
		for key, value := range exchange.Body {
			payload[key] = value
		}
		for _, parent := range factory.parents {
			if value := exchange.Param(parent.param); value != "" && payload[parent.field] == nil {
				payload[parent.field] = value
			}
		}
		if factory.principalField != "" && exchange.Principal != nil {
			payload[factory.principalField] = exchange.Principal.ID
		}

		// ── 2. Validate & Prepare ─────────────────────────────────────────
		document, err := factory.store.Collection().Validate(payload, true)
		if err != nil {
			return err
		}
		if err := factory.prepare(ctx, document, nil); err != nil {
			return err
		}

		// ── 3. Persist ────────────────────────────────────────────────────
		created, err := factory.store.Insert(ctx, document)
		if err != nil {
			return err
		}

		if err := factory.notify(ctx, WriteEvent{Op: OpCreate, After: created}); err != nil {
			return err
		}

		respond.Created(exchange.Writer, created)
		return nil
	})
}

// GetOne loads the document named by the id path parameter and runs populators
// over it.
func (factory *Factory) GetOne(populators ...docstore.Populator) pipeline.Stage {
	return pipeline.Terminal(func(exchange *pipeline.Exchange) error {
		document, err := factory.store.FindOne(exchange.Context(), byID(exchange), query.Projection{})
		if err != nil {
			return err
		}

		if err := docstore.Populate(exchange.Context(), []docstore.Document{document}, populators...); err != nil {
			return err
		}

		respond.OK(exchange.Writer, document)
		return nil
	})
}

// GetAll lists documents using the filter, sort, fields, page and limit query
// parameters.
func (factory *Factory) GetAll() pipeline.Stage {
	return pipeline.Terminal(func(exchange *pipeline.Exchange) error {
		collection := factory.store.Collection()

		spec, err := query.Build(exchange.Query, collection, collection.DefaultSort)
		if err != nil {
			return queryError(err)
		}
		for _, parent := range factory.parents {
			if value := exchange.Param(parent.param); value != "" {
				spec.Filter = append(spec.Filter, query.Eq(parent.field, value))
			}
		}

		page, err := factory.store.Find(exchange.Context(), spec)
		if err != nil {
			return err
		}

		meta := pagination.NewMeta(spec.Page.Page, spec.Page.Limit, page.Total)
		respond.List(exchange.Writer, page.Items, &meta)
		return nil
	})
}

// UpdateOne applies a partial update to the document named by the id path
// parameter and responds with its new state.
func (factory *Factory) UpdateOne() pipeline.Stage {
	return pipeline.Terminal(func(exchange *pipeline.Exchange) error {
		ctx := exchange.Context()

		// ── 1. Load Current State ─────────────────────────────────────────
		before, err := factory.store.FindOne(ctx, byID(exchange), query.Projection{})
		if err != nil {
			return err
		}

		// ── 2. Validate & Prepare ─────────────────────────────────────────
		changes, err := factory.store.Collection().Validate(exchange.Body, false)
		if err != nil {
			return err
		}
		if err := factory.prepare(ctx, changes, before); err != nil {
			return err
		}

		// ── 3. Persist ────────────────────────────────────────────────────
		after, err := factory.store.UpdateOne(ctx, byID(exchange), changes)
		if err != nil {
			return err
		}

		if err := factory.notify(ctx, WriteEvent{Op: OpUpdate, Before: before, After: after}); err != nil {
			return err
		}

		respond.OK(exchange.Writer, after)
		return nil
	})
}

// DeleteOne removes the document named by the id path parameter and responds 204.
func (factory *Factory) DeleteOne() pipeline.Stage {
	return pipeline.Terminal(func(exchange *pipeline.Exchange) error {
		ctx := exchange.Context()

		before, err := factory.store.DeleteOne(ctx, byID(exchange))
		if err != nil {
			return err
		}

		if err := factory.notify(ctx, WriteEvent{Op: OpDelete, Before: before}); err != nil {
			return err
		}

		respond.NoContent(exchange.Writer)
		return nil
	})
}

// # Internals

func (factory *Factory) prepare(ctx context.Context, document, existing docstore.Document) error {
	for _, prepare := range factory.prepares {
		if err := prepare(ctx, document, existing); err != nil {
			return err
		}
	}
	return nil
}

func (factory *Factory) notify(ctx context.Context, event WriteEvent) error {
	for _, hook := range factory.hooks {
		if err := hook(ctx, event); err != nil {
			slog.ErrorContext(ctx, "resource_write_hook_failed",
				slog.String("collection", factory.store.Collection().Name),
				slog.String("op", string(event.Op)),
				slog.Any("error", err),
			)
			return err
		}
	}
	return nil
}

// byID filters on the id path parameter.
func byID(exchange *pipeline.Exchange) []query.Clause {
	return []query.Clause{query.Eq(docstore.FieldID, exchange.Param(ParamID))}
}

// queryError converts a rejected query parameter into a validation error.
func queryError(err error) error {
	var queryErr *query.Error
	if errors.As(err, &queryErr) {
		return apperr.ValidationError(queryErr.Error()).WithCause(err)
	}
	return err
}
