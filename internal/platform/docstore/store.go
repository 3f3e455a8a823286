// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package docstore

import (
	"context"

	"github.com/taibuivan/trailhead/pkg/query"
)

// Page is one page of a list result.
type Page struct {
	Items []Document
	// Total counts every document matching the filter, ignoring pagination.
	Total int
}

// Summary is the result of [Store.Aggregate].
type Summary struct {
	Count   int64
	Average float64
}

// Store is the persistence contract behind the generic resource handlers.
//
// Filters are ANDed. Single-document operations act on the first match in
// storage order and return a NOT_FOUND [apperr.AppError] when nothing matches.
type Store interface {
	// Collection returns the descriptor the store serves.
	Collection() *Collection

	// Find lists documents matching spec.
	Find(ctx context.Context, spec query.Spec) (Page, error)

	// FindOne returns the first document matching filter.
	FindOne(ctx context.Context, filter []query.Clause, projection query.Projection) (Document, error)

	// Insert stores a validated document and returns it as persisted.
	Insert(ctx context.Context, document Document) (Document, error)

	// UpdateOne applies changes to the first match and returns the new state.
	// A nil value clears the field.
	UpdateOne(ctx context.Context, filter []query.Clause, changes Document) (Document, error)

	// DeleteOne removes the first match and returns it as it was.
	DeleteOne(ctx context.Context, filter []query.Clause) (Document, error)

	// Aggregate counts matching documents and averages a numeric field.
	Aggregate(ctx context.Context, filter []query.Clause, field string) (Summary, error)
}

// # Scoping

type scopedStore struct {
	Store
	scope []query.Clause
}

// Scoped returns a store that ANDs scope into every read, update and delete.
// Inserts pass through unchanged.
func Scoped(store Store, scope ...query.Clause) Store {
	return &scopedStore{Store: store, scope: scope}
}

func (store *scopedStore) with(filter []query.Clause) []query.Clause {
	combined := make([]query.Clause, 0, len(store.scope)+len(filter))
	return append(append(combined, store.scope...), filter...)
}

func (store *scopedStore) Find(ctx context.Context, spec query.Spec) (Page, error) {
	spec.Filter = store.with(spec.Filter)
	return store.Store.Find(ctx, spec)
}

func (store *scopedStore) FindOne(ctx context.Context, filter []query.Clause, projection query.Projection) (Document, error) {
	return store.Store.FindOne(ctx, store.with(filter), projection)
}

func (store *scopedStore) UpdateOne(ctx context.Context, filter []query.Clause, changes Document) (Document, error) {
	return store.Store.UpdateOne(ctx, store.with(filter), changes)
}

func (store *scopedStore) DeleteOne(ctx context.Context, filter []query.Clause) (Document, error) {
	return store.Store.DeleteOne(ctx, store.with(filter))
}

func (store *scopedStore) Aggregate(ctx context.Context, filter []query.Clause, field string) (Summary, error) {
	return store.Store.Aggregate(ctx, store.with(filter), field)
}

// # Population

// Populator expands references in documents returned by a read.
type Populator func(ctx context.Context, documents []Document) error

type populatedStore struct {
	Store
	populators []Populator
}

// Populated returns a store that runs populators over the results of Find,
// FindOne and UpdateOne.
func Populated(store Store, populators ...Populator) Store {
	return &populatedStore{Store: store, populators: populators}
}

func (store *populatedStore) Find(ctx context.Context, spec query.Spec) (Page, error) {
	page, err := store.Store.Find(ctx, spec)
	if err != nil {
		return Page{}, err
	}
	return page, Populate(ctx, page.Items, store.populators...)
}

func (store *populatedStore) FindOne(ctx context.Context, filter []query.Clause, projection query.Projection) (Document, error) {
	document, err := store.Store.FindOne(ctx, filter, projection)
	if err != nil {
		return nil, err
	}
	return document, Populate(ctx, []Document{document}, store.populators...)
}

func (store *populatedStore) UpdateOne(ctx context.Context, filter []query.Clause, changes Document) (Document, error) {
	document, err := store.Store.UpdateOne(ctx, filter, changes)
	if err != nil {
		return nil, err
	}
	return document, Populate(ctx, []Document{document}, store.populators...)
}

// Populate runs populators in order and stops at the first error.
func Populate(ctx context.Context, documents []Document, populators ...Populator) error {
	if len(documents) == 0 {
		return nil
	}
	for _, populate := range populators {
		if err := populate(ctx, documents); err != nil {
			return err
		}
	}
	return nil
}

// PopulateRefs replaces the ids stored in field with the referenced documents
// from target, projected to fields. Single references become a [Document] (or
// nil when dangling); reference lists become a []Document in stored order with
// dangling ids dropped.
func PopulateRefs(field string, target Store, fields ...string) Populator {
	return func(ctx context.Context, documents []Document) error {
		var ids []string
		for _, document := range documents {
			ids = append(ids, refsOf(document[field])...)
		}
		if len(ids) == 0 {
			return nil
		}

		found, err := fetch(ctx, target, FieldID, dedupe(ids), fields)
		if err != nil {
			return err
		}
		byID := make(map[string]Document, len(found))
		for _, item := range found {
			byID[item.ID()] = item
		}

		for _, document := range documents {
			switch value := document[field].(type) {
			case string:
				if item, ok := byID[value]; ok {
					document[field] = item
				} else {
					document[field] = nil
				}
			case []string:
				expanded := make([]Document, 0, len(value))
				for _, id := range value {
					if item, ok := byID[id]; ok {
						expanded = append(expanded, item)
					}
				}
				document[field] = expanded
			}
		}
		return nil
	}
}

// Attach stores under field the documents of target whose foreignField
// references each document's id. Documents without matches get an empty list.
func Attach(field string, target Store, foreignField string, fields ...string) Populator {
	if len(fields) > 0 && !contains(fields, foreignField) {
		fields = append(append([]string{}, fields...), foreignField)
	}

	return func(ctx context.Context, documents []Document) error {
		ids := make([]string, 0, len(documents))
		for _, document := range documents {
			if id := document.ID(); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		found, err := fetch(ctx, target, foreignField, dedupe(ids), fields)
		if err != nil {
			return err
		}
		grouped := make(map[string][]Document)
		for _, item := range found {
			owner := item.String(foreignField)
			grouped[owner] = append(grouped[owner], item)
		}

		for _, document := range documents {
			attached := grouped[document.ID()]
			if attached == nil {
				attached = []Document{}
			}
			document[field] = attached
		}
		return nil
	}
}

// fetch loads every document of target whose field equals one of ids.
func fetch(ctx context.Context, target Store, field string, ids []string, fields []string) ([]Document, error) {
	spec := query.Spec{
		Filter:     []query.Clause{query.Eq(field, ids...)},
		Sort:       []query.Order{{Field: FieldCreatedAt}},
		Projection: query.Projection{Include: fields},
	}
	spec.Page.Page = 1
	spec.Page.Limit = 1 << 20

	page, err := target.Find(ctx, spec)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// refsOf returns the ids held by a reference or reference-list value.
func refsOf(value any) []string {
	switch typed := value.(type) {
	case string:
		return []string{typed}
	case []string:
		return typed
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
