// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package docstore persists resources as flat documents described by a [Collection].

A document is a map from public (JSON) field names to typed values. The
collection descriptor maps every public name to a column and a [Kind], and
declares what clients may filter, sort, select and write. Because every SQL
identifier comes from the descriptor, user input only ever reaches the database
as bind parameters.

Architecture:

  - Collection: field descriptors, coercion of query values, payload validation
  - Store: the storage contract consumed by the resource factory
  - PostgresStore: the pgx implementation
  - Scoped / Populated: decorators for default scopes and reference expansion
*/
package docstore

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/taibuivan/trailhead/internal/platform/apperr"
	"github.com/taibuivan/trailhead/internal/platform/validate"
	"github.com/taibuivan/trailhead/pkg/query"
	"github.com/taibuivan/trailhead/pkg/uuid"
)

// Well-known fields present in every collection.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldVersion   = "version"
)

// Kind is the value type of a field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindRef
	KindStringArray
	KindTimeArray
)

// IsArray reports whether values of this kind are lists.
func (kind Kind) IsArray() bool {
	return kind == KindStringArray || kind == KindTimeArray
}

// Ordered reports whether range operators make sense for this kind.
func (kind Kind) Ordered() bool {
	switch kind {
	case KindString, KindInt, KindFloat, KindTime:
		return true
	}
	return false
}

// Document is a resource keyed by public field name.
type Document map[string]any

// ID returns the document identifier, or "" when absent.
func (document Document) ID() string {
	id, _ := document[FieldID].(string)
	return id
}

// String returns a string-valued field, or "".
func (document Document) String(field string) string {
	value, _ := document[field].(string)
	return value
}

// Clone returns a shallow copy.
func (document Document) Clone() Document {
	clone := make(Document, len(document))
	for key, value := range document {
		clone[key] = value
	}
	return clone
}

// Merge returns a copy of document overlaid with changes.
func (document Document) Merge(changes Document) Document {
	merged := document.Clone()
	for key, value := range changes {
		merged[key] = value
	}
	return merged
}

// Field describes one document field.
type Field struct {
	// Name is the public (JSON) name.
	Name string
	// Column is the storage column.
	Column string
	Kind   Kind

	// Required fields must be present when a document is created.
	Required bool
	// Writable fields may be set by clients.
	Writable bool
	// Filterable and Sortable fields may appear in list queries.
	Filterable bool
	Sortable   bool
	// Hidden fields are left out of the default projection but may be requested.
	Hidden bool
	// Secret fields are never exposed to clients. Code may still scope on them.
	Secret bool

	// Value constraints checked by [Collection.Validate].
	Min, Max       *float64
	MinLen, MaxLen int
	Enum           []string

	// Default is stored on create when the field is absent.
	Default any
}

// Condition is a filter clause whose values have been coerced to the field's kind.
type Condition struct {
	Field  *Field
	Op     query.Op
	Values []any
}

// Collection describes a resource and its storage.
type Collection struct {
	// Name is the singular resource name used in messages.
	Name string
	// Table is the schema-qualified storage table.
	Table string
	// DefaultSort is used when a list request does not specify "sort".
	DefaultSort string

	fields []*Field
	byName map[string]*Field
}

// NewCollection builds a descriptor. The id, createdAt and version fields are
// added automatically.
func NewCollection(name, table, defaultSort string, fields ...Field) *Collection {
	collection := &Collection{
		Name:        name,
		Table:       table,
		DefaultSort: defaultSort,
		byName:      make(map[string]*Field),
	}

	builtins := []Field{
		{Name: FieldID, Column: "id", Kind: KindRef, Filterable: true, Sortable: true},
		{Name: FieldCreatedAt, Column: "createdat", Kind: KindTime, Filterable: true, Sortable: true},
		{Name: FieldVersion, Column: "version", Kind: KindInt, Hidden: true},
	}

	for _, field := range append(builtins, fields...) {
		field := field
		collection.fields = append(collection.fields, &field)
		collection.byName[field.Name] = &field
	}
	return collection
}

// Field looks up a field by public name.
func (collection *Collection) Field(name string) (*Field, bool) {
	field, ok := collection.byName[name]
	return field, ok
}

// # Query Schema

// CanFilter implements [query.Schema].
func (collection *Collection) CanFilter(name string) bool {
	field, ok := collection.byName[name]
	return ok && field.Filterable && !field.Secret
}

// CanSort implements [query.Schema].
func (collection *Collection) CanSort(name string) bool {
	field, ok := collection.byName[name]
	return ok && field.Sortable && !field.Secret
}

// CanSelect implements [query.Schema].
func (collection *Collection) CanSelect(name string) bool {
	field, ok := collection.byName[name]
	return ok && !field.Secret
}

// Select resolves a projection to the fields to return. The id is always included.
func (collection *Collection) Select(projection query.Projection) []*Field {
	var selected []*Field

	switch {
	case len(projection.Include) > 0:
		for _, field := range collection.fields {
			if field.Name == FieldID || contains(projection.Include, field.Name) {
				selected = append(selected, field)
			}
		}
	default:
		for _, field := range collection.fields {
			if field.Secret || field.Hidden {
				continue
			}
			if field.Name != FieldID && contains(projection.Exclude, field.Name) {
				continue
			}
			selected = append(selected, field)
		}
	}
	return selected
}

// # Coercion

// Coerce converts a clause's string values to the field's kind.
func (collection *Collection) Coerce(clause query.Clause) (Condition, error) {
	field, ok := collection.byName[clause.Field]
	if !ok {
		return Condition{}, apperr.ValidationError(fmt.Sprintf("Unknown field: %s", clause.Field))
	}

	if clause.Op.IsRange() && !field.Kind.Ordered() {
		return Condition{}, apperr.ValidationError(fmt.Sprintf("Field %s does not support %s", field.Name, clause.Op))
	}

	condition := Condition{Field: field, Op: clause.Op}
	for _, raw := range clause.Values {
		value, err := parseScalar(field.Kind, raw)
		if err != nil {
			return Condition{}, apperr.ValidationError(fmt.Sprintf("Invalid %s: %s.", field.Name, raw)).WithCause(err)
		}
		condition.Values = append(condition.Values, value)
	}
	return condition, nil
}

// CoerceAll coerces every clause.
func (collection *Collection) CoerceAll(clauses []query.Clause) ([]Condition, error) {
	conditions := make([]Condition, 0, len(clauses))
	for _, clause := range clauses {
		condition, err := collection.Coerce(clause)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}
	return conditions, nil
}

// parseScalar parses a query string value. Array kinds parse their element type.
func parseScalar(kind Kind, raw string) (any, error) {
	switch kind {
	case KindString, KindStringArray:
		return raw, nil
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(raw, 64)
	case KindBool:
		return strconv.ParseBool(raw)
	case KindTime, KindTimeArray:
		return parseTime(raw)
	case KindRef:
		if !uuid.Valid(raw) {
			return nil, fmt.Errorf("docstore: %q is not a uuid", raw)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("docstore: unsupported kind %d", kind)
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	return time.Parse(time.DateOnly, raw)
}

// # Payload Validation

// Validate checks a client payload and returns it converted to stored types.
//
// On create, required fields must be present and defaults are applied. On update
// only the supplied fields are checked; null clears an optional field.
func (collection *Collection) Validate(payload map[string]any, creating bool) (Document, error) {
	validator := &validate.Validator{}
	clean := Document{}
	rejected := map[string]bool{}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := payload[key]
		field, ok := collection.byName[key]
		if !ok || field.Secret || !field.Writable {
			validator.Custom(key, true, "This field cannot be set")
			continue
		}

		if raw == nil {
			validator.Custom(key, field.Required, "This field is required")
			clean[key] = nil
			continue
		}

		value, message := convertPayload(field, raw)
		if message == "" {
			message = checkBounds(field, value)
		}
		if message != "" {
			validator.Custom(key, true, message)
			rejected[key] = true
			continue
		}
		clean[key] = value
	}

	if creating {
		for _, field := range collection.fields {
			if _, present := clean[field.Name]; present || rejected[field.Name] {
				continue
			}
			if field.Default != nil {
				clean[field.Name] = field.Default
				continue
			}
			if field.Required {
				validator.Custom(field.Name, true, "This field is required")
			}
		}
	}

	if err := validator.Err(); err != nil {
		return nil, err
	}
	return clean, nil
}

// convertPayload converts a decoded JSON value to the field's stored type.
// It returns a non-empty message when the value has the wrong shape.
func convertPayload(field *Field, raw any) (any, string) {
	switch field.Kind {
	case KindString:
		if value, ok := raw.(string); ok {
			return value, ""
		}
		return nil, "Must be a string"

	case KindRef:
		if value, ok := raw.(string); ok && uuid.Valid(value) {
			return value, ""
		}
		return nil, "Must be a valid id"

	case KindInt:
		number, ok := raw.(float64)
		if !ok || number != math.Trunc(number) {
			return nil, "Must be an integer"
		}
		return int64(number), ""

	case KindFloat:
		if number, ok := raw.(float64); ok {
			return number, ""
		}
		return nil, "Must be a number"

	case KindBool:
		if value, ok := raw.(bool); ok {
			return value, ""
		}
		return nil, "Must be a boolean"

	case KindTime:
		if text, ok := raw.(string); ok {
			if parsed, err := parseTime(text); err == nil {
				return parsed, ""
			}
		}
		return nil, "Must be a date"

	case KindStringArray:
		items, ok := raw.([]any)
		if !ok {
			return nil, "Must be a list of strings"
		}
		values := make([]string, 0, len(items))
		for _, item := range items {
			text, ok := item.(string)
			if !ok {
				return nil, "Must be a list of strings"
			}
			values = append(values, text)
		}
		return values, ""

	case KindTimeArray:
		items, ok := raw.([]any)
		if !ok {
			return nil, "Must be a list of dates"
		}
		values := make([]time.Time, 0, len(items))
		for _, item := range items {
			text, ok := item.(string)
			if !ok {
				return nil, "Must be a list of dates"
			}
			parsed, err := parseTime(text)
			if err != nil {
				return nil, "Must be a list of dates"
			}
			values = append(values, parsed)
		}
		return values, ""
	}
	return nil, "Unsupported value"
}

// checkBounds applies the declared length, range and enum constraints.
func checkBounds(field *Field, value any) string {
	validator := &validate.Validator{}

	switch typed := value.(type) {
	case string:
		if field.MinLen > 0 {
			validator.MinLen(field.Name, typed, field.MinLen)
		}
		if field.MaxLen > 0 {
			validator.MaxLen(field.Name, typed, field.MaxLen)
		}
		if len(field.Enum) > 0 {
			validator.OneOf(field.Name, typed, field.Enum...)
		}
	case int64:
		checkNumber(validator, field, float64(typed))
	case float64:
		checkNumber(validator, field, typed)
	}

	if err := validator.Err(); err != nil {
		return apperr.As(err).Details[0].Message
	}
	return ""
}

// checkNumber applies Min and Max when declared.
func checkNumber(validator *validate.Validator, field *Field, value float64) {
	if field.Min != nil {
		validator.Custom(field.Name, value < *field.Min, fmt.Sprintf("Must be at least %g", *field.Min))
	}
	if field.Max != nil {
		validator.Custom(field.Name, value > *field.Max, fmt.Sprintf("Must be at most %g", *field.Max))
	}
}

// contains reports whether names includes name.
func contains(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}
