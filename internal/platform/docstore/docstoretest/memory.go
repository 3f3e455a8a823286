// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package docstoretest provides an in-memory [docstore.Store] for tests.
package docstoretest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/dberr"
	"github.com/taibuivan/trailhead/internal/platform/docstore"
	"github.com/taibuivan/trailhead/pkg/query"
	"github.com/taibuivan/trailhead/pkg/uuid"
)

// Store keeps documents in insertion order.
type Store struct {
	mu         sync.Mutex
	collection *docstore.Collection
	documents  []docstore.Document
	unique     [][]string
	now        func() time.Time
}

// Option configures a [Store].
type Option func(*Store)

// WithUnique makes Insert and UpdateOne reject duplicate values of each field.
func WithUnique(fields ...string) Option {
	return func(store *Store) {
		for _, field := range fields {
			store.unique = append(store.unique, []string{field})
		}
	}
}

// WithUniqueTogether rejects documents whose fields all equal another document's.
func WithUniqueTogether(fields ...string) Option {
	return func(store *Store) { store.unique = append(store.unique, fields) }
}

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(store *Store) { store.now = now }
}

// New creates an empty store.
func New(collection *docstore.Collection, options ...Option) *Store {
	store := &Store{collection: collection, now: time.Now}
	for _, option := range options {
		option(store)
	}
	return store
}

// Len returns the number of stored documents.
func (store *Store) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.documents)
}

// Collection implements [docstore.Store].
func (store *Store) Collection() *docstore.Collection {
	return store.collection
}

// Find implements [docstore.Store].
func (store *Store) Find(_ context.Context, spec query.Spec) (docstore.Page, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	conditions, err := store.collection.CoerceAll(spec.Filter)
	if err != nil {
		return docstore.Page{}, err
	}

	var matched []docstore.Document
	for _, document := range store.documents {
		if matchesAll(document, conditions) {
			matched = append(matched, document)
		}
	}

	orders := append(append([]query.Order{}, spec.Sort...), query.Order{Field: docstore.FieldID})
	sort.SliceStable(matched, func(i, j int) bool {
		for _, order := range orders {
			result := compare(matched[i][order.Field], matched[j][order.Field])
			if result == 0 {
				continue
			}
			if order.Desc {
				return result > 0
			}
			return result < 0
		}
		return false
	})

	page := docstore.Page{Items: []docstore.Document{}, Total: len(matched)}
	offset := spec.Page.Offset()
	for index := offset; index < len(matched) && index < offset+spec.Page.Limit; index++ {
		page.Items = append(page.Items, store.project(matched[index], spec.Projection))
	}
	return page, nil
}

// FindOne implements [docstore.Store].
func (store *Store) FindOne(_ context.Context, filter []query.Clause, projection query.Projection) (docstore.Document, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	index, err := store.first(filter)
	if err != nil {
		return nil, err
	}
	return store.project(store.documents[index], projection), nil
}

// Insert implements [docstore.Store].
func (store *Store) Insert(_ context.Context, document docstore.Document) (docstore.Document, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	row := document.Clone()
	if row.ID() == "" {
		row[docstore.FieldID] = uuid.New()
	}
	if _, ok := row[docstore.FieldCreatedAt]; !ok {
		row[docstore.FieldCreatedAt] = store.now()
	}
	row[docstore.FieldVersion] = int64(1)

	if err := store.checkUnique(row, -1); err != nil {
		return nil, err
	}
	store.documents = append(store.documents, row)
	return store.project(row, query.Projection{}), nil
}

// UpdateOne implements [docstore.Store].
func (store *Store) UpdateOne(_ context.Context, filter []query.Clause, changes docstore.Document) (docstore.Document, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	index, err := store.first(filter)
	if err != nil {
		return nil, err
	}

	row := store.documents[index].Clone()
	for key, value := range changes {
		if _, ok := store.collection.Field(key); !ok || key == docstore.FieldID {
			return nil, apperr.Internalf("docstoretest: cannot update field %q", key)
		}
		if value == nil {
			delete(row, key)
			continue
		}
		row[key] = value
	}
	version, _ := row[docstore.FieldVersion].(int64)
	row[docstore.FieldVersion] = version + 1

	if err := store.checkUnique(row, index); err != nil {
		return nil, err
	}
	store.documents[index] = row
	return store.project(row, query.Projection{}), nil
}

// DeleteOne implements [docstore.Store].
func (store *Store) DeleteOne(_ context.Context, filter []query.Clause) (docstore.Document, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	index, err := store.first(filter)
	if err != nil {
		return nil, err
	}
	removed := store.documents[index]
	store.documents = append(store.documents[:index], store.documents[index+1:]...)
	return store.project(removed, query.Projection{}), nil
}

// Aggregate implements [docstore.Store].
func (store *Store) Aggregate(_ context.Context, filter []query.Clause, field string) (docstore.Summary, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	conditions, err := store.collection.CoerceAll(filter)
	if err != nil {
		return docstore.Summary{}, err
	}

	var summary docstore.Summary
	var sum float64
	for _, document := range store.documents {
		if !matchesAll(document, conditions) {
			continue
		}
		if number, ok := toFloat(document[field]); ok {
			summary.Count++
			sum += number
		}
	}
	if summary.Count > 0 {
		summary.Average = sum / float64(summary.Count)
	}
	return summary, nil
}

// # Internals

func (store *Store) first(filter []query.Clause) (int, error) {
	conditions, err := store.collection.CoerceAll(filter)
	if err != nil {
		return 0, err
	}
	for index, document := range store.documents {
		if matchesAll(document, conditions) {
			return index, nil
		}
	}
	return 0, apperr.NotFound(dberr.MsgNotFound)
}

func (store *Store) checkUnique(row docstore.Document, skip int) error {
	for _, key := range store.unique {
		for index, existing := range store.documents {
			if index != skip && sameKey(existing, row, key) {
				return apperr.Conflict(fmt.Sprintf("Duplicate field value for %s. Please use another value!", strings.Join(key, ", ")))
			}
		}
	}
	return nil
}

// sameKey reports whether both documents carry equal values for every field.
func sameKey(left, right docstore.Document, fields []string) bool {
	for _, field := range fields {
		value, ok := right[field]
		if !ok || value == nil || compare(left[field], value) != 0 {
			return false
		}
	}
	return true
}

func (store *Store) project(document docstore.Document, projection query.Projection) docstore.Document {
	projected := make(docstore.Document)
	for _, field := range store.collection.Select(projection) {
		if value, ok := document[field.Name]; ok {
			projected[field.Name] = cloneValue(value)
		}
	}
	return projected
}

func matchesAll(document docstore.Document, conditions []docstore.Condition) bool {
	for _, condition := range conditions {
		if !matches(document[condition.Field.Name], condition) {
			return false
		}
	}
	return true
}

func matches(value any, condition docstore.Condition) bool {
	if condition.Op == query.OpEq {
		for _, expected := range condition.Values {
			if contains(value, expected) {
				return true
			}
		}
		return false
	}

	for _, bound := range condition.Values {
		if value == nil {
			return false
		}
		result := compare(value, bound)
		switch condition.Op {
		case query.OpGt:
			if result <= 0 {
				return false
			}
		case query.OpGte:
			if result < 0 {
				return false
			}
		case query.OpLt:
			if result >= 0 {
				return false
			}
		case query.OpLte:
			if result > 0 {
				return false
			}
		}
	}
	return true
}

// contains matches scalars by equality and arrays by membership.
func contains(value, expected any) bool {
	switch typed := value.(type) {
	case []string:
		for _, item := range typed {
			if compare(item, expected) == 0 {
				return true
			}
		}
		return false
	case []time.Time:
		for _, item := range typed {
			if compare(item, expected) == 0 {
				return true
			}
		}
		return false
	}
	if value == nil {
		return expected == nil
	}
	return compare(value, expected) == 0
}

// compare orders values of the same kind. Missing values sort first.
func compare(left, right any) int {
	if left == nil || right == nil {
		switch {
		case left == nil && right == nil:
			return 0
		case left == nil:
			return -1
		default:
			return 1
		}
	}

	if a, ok := toFloat(left); ok {
		if b, ok := toFloat(right); ok {
			return ordered(a, b)
		}
	}

	switch a := left.(type) {
	case string:
		if b, ok := right.(string); ok {
			return ordered(a, b)
		}
	case bool:
		if b, ok := right.(bool); ok {
			switch {
			case a == b:
				return 0
			case !a:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if b, ok := right.(time.Time); ok {
			return a.Compare(b)
		}
	}
	return ordered(fmt.Sprint(left), fmt.Sprint(right))
}

func ordered[T int | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int64:
		return float64(typed), true
	case int:
		return float64(typed), true
	case float64:
		return typed, true
	}
	return 0, false
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case []string:
		return append([]string{}, typed...)
	case []time.Time:
		return append([]time.Time{}, typed...)
	}
	return value
}

var _ docstore.Store = (*Store)(nil)
