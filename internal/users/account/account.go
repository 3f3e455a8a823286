// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages member profiles.

It exposes the users collection to the generic resource handlers (admin CRUD)
and implements the self-service endpoints a logged-in member uses to read,
edit and close their own account. Credential state never flows through this
package; see the auth package for passwords and sessions.

Architecture:

  - Collection: Public user fields. Credential columns are not part of it.
  - Store: The users store, scoped to active accounts.
  - Service: Self-service use cases (me, updateMe, deleteMe).
  - Handler: Self-service and admin routes.
*/
package account

import (
	"github.com/taibuivan/trailhead/internal/platform/database/schema"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/internal/platform/postgres"
	"github.com/taibuivan/trailhead/internal/platform/sec"
	"github.com/taibuivan/trailhead/pkg/query"
)

// # Fields

// Public field names of the users collection.
const (
	FieldName   = "name"
	FieldEmail  = "email"
	FieldPhoto  = "photo"
	FieldRole   = "role"
	FieldActive = "active"
)

// Projections used when other resources embed a user.
var (
	// GuideFields is the shape of a tour guide inside a tour.
	GuideFields = []string{FieldName, FieldEmail, FieldRole, FieldPhoto}
	// AuthorFields is the shape of a review author.
	AuthorFields = []string{FieldName, FieldPhoto}
)

// Collection describes users.account as a document collection.
func Collection() *docstore.Collection {
	table := schema.UserAccount
	return docstore.NewCollection("user", table.Table, query.DefaultSort,
		docstore.Field{Name: FieldName, Column: table.Name, Kind: docstore.KindString, Required: true, Writable: true, Filterable: true, Sortable: true, MinLen: 3, MaxLen: 50},
		docstore.Field{Name: FieldEmail, Column: table.Email, Kind: docstore.KindString, Required: true, Writable: true, Filterable: true, Sortable: true},
		docstore.Field{Name: FieldPhoto, Column: table.Photo, Kind: docstore.KindString, Writable: true, Default: "default.jpg"},
		docstore.Field{Name: FieldRole, Column: table.Role, Kind: docstore.KindString, Writable: true, Filterable: true, Sortable: true, Enum: sec.RoleNames(), Default: string(sec.RoleUser)},
		docstore.Field{Name: FieldActive, Column: table.IsActive, Kind: docstore.KindBool, Secret: true, Default: true},
	)
}

// NewStore returns the PostgreSQL users store, limited to active accounts.
func NewStore(db postgres.DB) docstore.Store {
	return ActiveOnly(docstore.NewPostgresStore(db, Collection()))
}

// ActiveOnly hides deactivated accounts from every read, update and delete.
func ActiveOnly(store docstore.Store) docstore.Store {
	return docstore.Scoped(store, query.Eq(FieldActive, "true"))
}
