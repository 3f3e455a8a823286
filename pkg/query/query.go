// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package query turns URL query parameters into a storage-neutral list specification.

The four stages are pure functions and can be used on their own:

  - [Filter]: field=value and field[op]=value pairs into [Clause] values
  - [Sort]: "sort=a,-b" into ordered [Order] keys
  - [Project]: "fields=a,b" or "fields=-a" into a [Projection]
  - [Paginate]: "page" and "limit" into [pagination.Params]

[Build] composes them in that order. Field names are checked against a [Schema]
so unknown or non-queryable fields never reach the storage layer.
*/
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/taibuivan/trailhead/pkg/pagination"
)

// Reserved parameter names. They never become filter clauses.
const (
	ParamSort   = "sort"
	ParamFields = "fields"
)

// DefaultSort orders records newest first.
const DefaultSort = "-createdAt"

// # Operators

// Op is a comparison operator accepted in filter expressions.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpGt  Op = "gt"
	OpLte Op = "lte"
	OpLt  Op = "lt"
)

// ParseOp maps the bracketed operator of a filter key to its canonical [Op].
// Equality is normally implied by a plain key but may also be spelled "[eq]".
func ParseOp(raw string) (Op, bool) {
	switch Op(raw) {
	case OpEq, OpGte, OpGt, OpLte, OpLt:
		return Op(raw), true
	}
	return "", false
}

// IsRange reports whether the operator compares order rather than identity.
func (op Op) IsRange() bool {
	return op == OpGte || op == OpGt || op == OpLte || op == OpLt
}

// # Types

// Schema reports which fields may appear in each stage.
type Schema interface {
	CanFilter(field string) bool
	CanSort(field string) bool
	CanSelect(field string) bool
}

// Clause is a single filter condition. An equality clause with several values
// matches any of them.
type Clause struct {
	Field  string
	Op     Op
	Values []string
}

// Eq builds an equality clause.
func Eq(field string, values ...string) Clause {
	return Clause{Field: field, Op: OpEq, Values: values}
}

// Order is a single sort key.
type Order struct {
	Field string
	Desc  bool
}

// Projection selects the returned fields. At most one of Include and Exclude is set;
// when both are empty the store's default projection applies.
type Projection struct {
	Include []string
	Exclude []string
}

// IsDefault reports whether the caller left the projection unspecified.
func (projection Projection) IsDefault() bool {
	return len(projection.Include) == 0 && len(projection.Exclude) == 0
}

// Spec is the composed list specification.
type Spec struct {
	Filter     []Clause
	Sort       []Order
	Projection Projection
	Page       pagination.Params
}

// Error reports an unusable query parameter.
type Error struct {
	Param   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("query parameter %q: %s", e.Param, e.Message)
}

// # Stages

// Filter extracts filter clauses from all non-reserved parameters.
//
// Keys are either "field" (equality) or "field[op]" where op is one of gte, gt,
// lte, lt. Clauses are returned in key order so the result is deterministic.
func Filter(values url.Values, schema Schema) ([]Clause, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		if isReserved(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var clauses []Clause
	for _, key := range keys {
		field, op, err := parseKey(key)
		if err != nil {
			return nil, err
		}
		if !schema.CanFilter(field) {
			return nil, &Error{Param: key, Message: "field cannot be filtered"}
		}

		raw := values[key]
		if op == OpEq {
			clauses = append(clauses, Clause{Field: field, Op: op, Values: raw})
			continue
		}
		for _, value := range raw {
			clauses = append(clauses, Clause{Field: field, Op: op, Values: []string{value}})
		}
	}
	return clauses, nil
}

// Sort parses the comma-separated "sort" parameter. A leading "-" means
// descending. When the parameter is absent, fallback is parsed instead.
func Sort(values url.Values, schema Schema, fallback string) ([]Order, error) {
	raw := last(values, ParamSort)
	if raw == "" {
		raw = fallback
	}

	var orders []Order
	for _, segment := range StringSlice(raw) {
		order := Order{Field: segment}
		if strings.HasPrefix(segment, "-") {
			order = Order{Field: segment[1:], Desc: true}
		}
		if order.Field == "" || !schema.CanSort(order.Field) {
			return nil, &Error{Param: ParamSort, Message: fmt.Sprintf("cannot sort by %q", segment)}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// Project parses the comma-separated "fields" parameter into an inclusion or an
// exclusion list. Mixing both forms is rejected.
func Project(values url.Values, schema Schema) (Projection, error) {
	var projection Projection
	for _, segment := range StringSlice(last(values, ParamFields)) {
		field, exclude := strings.CutPrefix(segment, "-")
		if field == "" || !schema.CanSelect(field) {
			return Projection{}, &Error{Param: ParamFields, Message: fmt.Sprintf("unknown field %q", segment)}
		}
		if exclude {
			projection.Exclude = append(projection.Exclude, field)
		} else {
			projection.Include = append(projection.Include, field)
		}
	}

	if len(projection.Include) > 0 && len(projection.Exclude) > 0 {
		return Projection{}, &Error{Param: ParamFields, Message: "cannot mix included and excluded fields"}
	}
	return projection, nil
}

// Paginate parses "page" and "limit" with defaults and clamping.
func Paginate(values url.Values) pagination.Params {
	return pagination.Parse(values)
}

// Build runs filter, sort, project and paginate in order.
func Build(values url.Values, schema Schema, fallbackSort string) (Spec, error) {
	filter, err := Filter(values, schema)
	if err != nil {
		return Spec{}, err
	}

	orders, err := Sort(values, schema, fallbackSort)
	if err != nil {
		return Spec{}, err
	}

	projection, err := Project(values, schema)
	if err != nil {
		return Spec{}, err
	}

	return Spec{
		Filter:     filter,
		Sort:       orders,
		Projection: projection,
		Page:       Paginate(values),
	}, nil
}

// # Helpers

// StringSlice parses a single comma-separated query string
// into a trimmed slice of strings.
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}
	var res []string
	for _, v := range strings.Split(val, ",") {
		clean := strings.TrimSpace(v)
		if clean != "" {
			res = append(res, clean)
		}
	}
	return res
}

// parseKey splits "field[op]" into its parts.
func parseKey(key string) (string, Op, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if strings.ContainsRune(key, ']') || key == "" {
			return "", "", &Error{Param: key, Message: "malformed filter key"}
		}
		return key, OpEq, nil
	}

	field, rest := key[:open], key[open+1:]
	raw, ok := strings.CutSuffix(rest, "]")
	if field == "" || !ok || strings.ContainsAny(raw, "[]") {
		return "", "", &Error{Param: key, Message: "malformed filter key"}
	}

	op, ok := ParseOp(raw)
	if !ok {
		return "", "", &Error{Param: key, Message: fmt.Sprintf("unsupported operator %q", raw)}
	}
	return field, op, nil
}

// isReserved reports whether key controls paging or shaping rather than filtering.
func isReserved(key string) bool {
	switch key {
	case pagination.ParamPage, pagination.ParamLimit, ParamSort, ParamFields:
		return true
	}
	return false
}

// last returns the final value supplied for key, or "".
func last(values url.Values, key string) string {
	all := values[key]
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}
