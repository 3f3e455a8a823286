// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/dberr"
	"github.com/taibuivan/trailhead/internal/platform/postgres"
	"github.com/taibuivan/trailhead/pkg/query"
	"github.com/taibuivan/trailhead/pkg/uuid"
)

// PostgresStore implements [Store] on a single PostgreSQL table.
type PostgresStore struct {
	db         postgres.DB
	collection *Collection
}

// NewPostgresStore creates a store for collection backed by db.
func NewPostgresStore(db postgres.DB, collection *Collection) *PostgresStore {
	return &PostgresStore{db: db, collection: collection}
}

// Collection implements [Store].
func (store *PostgresStore) Collection() *Collection {
	return store.collection
}

// Find implements [Store].
func (store *PostgresStore) Find(ctx context.Context, spec query.Spec) (Page, error) {
	conditions, err := store.collection.CoerceAll(spec.Filter)
	if err != nil {
		return Page{}, err
	}
	fields := store.collection.Select(spec.Projection)

	// 1. Count every match before paging
	count := CompileCount(store.collection, conditions)
	var total int
	if err := store.db.QueryRow(ctx, count.SQL, count.Args...).Scan(&total); err != nil {
		return Page{}, dberr.Wrap(err, store.action("count"))
	}

	// 2. Fetch the requested page
	statement := CompileFind(store.collection, conditions, spec.Sort, fields, spec.Page)
	rows, err := store.db.Query(ctx, statement.SQL, statement.Args...)
	if err != nil {
		return Page{}, dberr.Wrap(err, store.action("find"))
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		document, err := scanDocument(rows, fields)
		if err != nil {
			return Page{}, dberr.Wrap(err, store.action("scan"))
		}
		items = append(items, document)
	}
	if err := rows.Err(); err != nil {
		return Page{}, dberr.Wrap(err, store.action("find"))
	}

	return Page{Items: items, Total: total}, nil
}

// FindOne implements [Store].
func (store *PostgresStore) FindOne(ctx context.Context, filter []query.Clause, projection query.Projection) (Document, error) {
	conditions, err := store.collection.CoerceAll(filter)
	if err != nil {
		return nil, err
	}
	fields := store.collection.Select(projection)

	statement := CompileFindOne(store.collection, conditions, fields)
	return store.queryOne(ctx, statement, fields, "find_one")
}

// Insert implements [Store]. An id is generated when the document has none.
func (store *PostgresStore) Insert(ctx context.Context, document Document) (Document, error) {
	row := document.Clone()
	if row.ID() == "" {
		row[FieldID] = uuid.New()
	}
	fields := store.collection.Select(query.Projection{})

	statement, err := CompileInsert(store.collection, row, fields)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return store.queryOne(ctx, statement, fields, "insert")
}

// UpdateOne implements [Store].
func (store *PostgresStore) UpdateOne(ctx context.Context, filter []query.Clause, changes Document) (Document, error) {
	conditions, err := store.collection.CoerceAll(filter)
	if err != nil {
		return nil, err
	}
	fields := store.collection.Select(query.Projection{})

	statement, err := CompileUpdate(store.collection, conditions, changes, fields)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return store.queryOne(ctx, statement, fields, "update")
}

// DeleteOne implements [Store].
func (store *PostgresStore) DeleteOne(ctx context.Context, filter []query.Clause) (Document, error) {
	conditions, err := store.collection.CoerceAll(filter)
	if err != nil {
		return nil, err
	}
	fields := store.collection.Select(query.Projection{})

	statement := CompileDelete(store.collection, conditions, fields)
	return store.queryOne(ctx, statement, fields, "delete")
}

// Aggregate implements [Store].
func (store *PostgresStore) Aggregate(ctx context.Context, filter []query.Clause, name string) (Summary, error) {
	field, ok := store.collection.Field(name)
	if !ok || (field.Kind != KindInt && field.Kind != KindFloat) {
		return Summary{}, apperr.Internalf("docstore: cannot average %s.%s", store.collection.Name, name)
	}

	conditions, err := store.collection.CoerceAll(filter)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	statement := CompileAggregate(store.collection, conditions, field)
	if err := store.db.QueryRow(ctx, statement.SQL, statement.Args...).Scan(&summary.Count, &summary.Average); err != nil {
		return Summary{}, dberr.Wrap(err, store.action("aggregate"))
	}
	return summary, nil
}

// queryOne runs a single-row statement and maps no rows to NOT_FOUND.
func (store *PostgresStore) queryOne(ctx context.Context, statement Statement, fields []*Field, verb string) (Document, error) {
	rows, err := store.db.Query(ctx, statement.SQL, statement.Args...)
	if err != nil {
		return nil, dberr.Wrap(err, store.action(verb))
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, dberr.Wrap(err, store.action(verb))
		}
		return nil, dberr.Wrap(pgx.ErrNoRows, store.action(verb))
	}

	document, err := scanDocument(rows, fields)
	if err != nil {
		return nil, dberr.Wrap(err, store.action(verb))
	}
	return document, nil
}

func (store *PostgresStore) action(verb string) string {
	return fmt.Sprintf("docstore_%s_%s_failed", store.collection.Name, verb)
}

// # Scanning

// scanDocument reads one row into a document. NULL columns are left out.
func scanDocument(rows pgx.Rows, fields []*Field) (Document, error) {
	targets := make([]any, len(fields))
	for index, field := range fields {
		targets[index] = scanTarget(field.Kind)
	}

	if err := rows.Scan(targets...); err != nil {
		return nil, err
	}

	document := make(Document, len(fields))
	for index, field := range fields {
		if value, ok := deref(targets[index]); ok {
			document[field.Name] = value
		}
	}
	return document, nil
}

func scanTarget(kind Kind) any {
	switch kind {
	case KindInt:
		return new(*int64)
	case KindFloat:
		return new(*float64)
	case KindBool:
		return new(*bool)
	case KindTime:
		return new(*time.Time)
	case KindStringArray:
		return new([]string)
	case KindTimeArray:
		return new([]time.Time)
	default:
		return new(*string)
	}
}

// deref unwraps a scan target. It reports false for NULL.
func deref(target any) (any, bool) {
	switch typed := target.(type) {
	case **string:
		return derefScalar(*typed)
	case **int64:
		return derefScalar(*typed)
	case **float64:
		return derefScalar(*typed)
	case **bool:
		return derefScalar(*typed)
	case **time.Time:
		return derefScalar(*typed)
	case *[]string:
		if *typed == nil {
			return []string{}, true
		}
		return *typed, true
	case *[]time.Time:
		if *typed == nil {
			return []time.Time{}, true
		}
		return *typed, true
	}
	return nil, false
}

func derefScalar[T any](value *T) (any, bool) {
	if value == nil {
		return nil, false
	}
	return *value, true
}

var _ Store = (*PostgresStore)(nil)
