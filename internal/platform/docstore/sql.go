// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package docstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/taibuivan/trailhead/pkg/pagination"
	"github.com/taibuivan/trailhead/pkg/query"
)

// Statement is a compiled SQL statement with positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// binder allocates positional placeholders.
type binder struct {
	args []any
}

func (b *binder) bind(value any) string {
	b.args = append(b.args, value)
	return "$" + strconv.Itoa(len(b.args))
}

// # Compilation

// CompileFind selects one page of matching rows in the requested order.
// The id is appended as a final key so paging is stable.
func CompileFind(collection *Collection, conditions []Condition, orders []query.Order, fields []*Field, page pagination.Params) Statement {
	b := &binder{}

	var sql strings.Builder
	fmt.Fprintf(&sql, "SELECT %s FROM %s", columnList(fields), collection.Table)
	sql.WriteString(where(b, conditions))
	sql.WriteString(orderBy(collection, orders))
	fmt.Fprintf(&sql, " LIMIT %s OFFSET %s", b.bind(page.Limit), b.bind(page.Offset()))

	return Statement{SQL: sql.String(), Args: b.args}
}

// CompileCount counts matching rows.
func CompileCount(collection *Collection, conditions []Condition) Statement {
	b := &binder{}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", collection.Table) + where(b, conditions)
	return Statement{SQL: sql, Args: b.args}
}

// CompileFindOne selects the first matching row.
func CompileFindOne(collection *Collection, conditions []Condition, fields []*Field) Statement {
	b := &binder{}
	sql := fmt.Sprintf("SELECT %s FROM %s", columnList(fields), collection.Table) + where(b, conditions) + " LIMIT 1"
	return Statement{SQL: sql, Args: b.args}
}

// CompileInsert inserts document and returns fields. Keys are written in sorted
// order so the statement text is deterministic.
func CompileInsert(collection *Collection, document Document, fields []*Field) (Statement, error) {
	b := &binder{}

	var columns, placeholders []string
	for _, key := range sortedKeys(document) {
		field, ok := collection.Field(key)
		if !ok {
			return Statement{}, fmt.Errorf("docstore: unknown field %q", key)
		}
		columns = append(columns, field.Column)
		placeholders = append(placeholders, b.bind(document[key]))
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		collection.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "), columnList(fields))
	return Statement{SQL: sql, Args: b.args}, nil
}

// CompileUpdate applies changes to the first matching row, bumps its version and
// touches updatedat.
func CompileUpdate(collection *Collection, conditions []Condition, changes Document, fields []*Field) (Statement, error) {
	b := &binder{}

	var assignments []string
	for _, key := range sortedKeys(changes) {
		field, ok := collection.Field(key)
		if !ok || key == FieldID {
			return Statement{}, fmt.Errorf("docstore: cannot update field %q", key)
		}
		assignments = append(assignments, fmt.Sprintf("%s = %s", field.Column, b.bind(changes[key])))
	}
	assignments = append(assignments, "version = version + 1", "updatedat = NOW()")

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = (SELECT id FROM %s%s LIMIT 1) RETURNING %s",
		collection.Table, strings.Join(assignments, ", "), collection.Table, where(b, conditions), columnList(fields))
	return Statement{SQL: sql, Args: b.args}, nil
}

// CompileDelete removes the first matching row and returns it.
func CompileDelete(collection *Collection, conditions []Condition, fields []*Field) Statement {
	b := &binder{}
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = (SELECT id FROM %s%s LIMIT 1) RETURNING %s",
		collection.Table, collection.Table, where(b, conditions), columnList(fields))
	return Statement{SQL: sql, Args: b.args}
}

// CompileAggregate counts matching rows and averages field. The average is 0
// when nothing matches.
func CompileAggregate(collection *Collection, conditions []Condition, field *Field) Statement {
	b := &binder{}
	sql := fmt.Sprintf("SELECT COUNT(%s), COALESCE(AVG(%s), 0)::float8 FROM %s",
		field.Column, field.Column, collection.Table) + where(b, conditions)
	return Statement{SQL: sql, Args: b.args}
}

// # Fragments

// where renders conditions as an ANDed WHERE clause, or "" when there are none.
func where(b *binder, conditions []Condition) string {
	if len(conditions) == 0 {
		return ""
	}

	predicates := make([]string, 0, len(conditions))
	for _, condition := range conditions {
		predicates = append(predicates, predicate(b, condition))
	}
	return " WHERE " + strings.Join(predicates, " AND ")
}

// predicate renders one condition.
//
// Equality against several values matches any of them. Array fields match when
// they contain the value. A range condition with several values requires all.
func predicate(b *binder, condition Condition) string {
	column := condition.Field.Column

	if len(condition.Values) == 0 {
		return "FALSE"
	}

	if condition.Op == query.OpEq {
		switch {
		case condition.Field.Kind.IsArray():
			parts := make([]string, 0, len(condition.Values))
			for _, value := range condition.Values {
				parts = append(parts, fmt.Sprintf("%s = ANY(%s)", b.bind(value), column))
			}
			return group(parts, " OR ")
		case len(condition.Values) == 1 && condition.Values[0] == nil:
			return column + " IS NULL"
		case len(condition.Values) == 1:
			return fmt.Sprintf("%s = %s", column, b.bind(condition.Values[0]))
		default:
			placeholders := make([]string, 0, len(condition.Values))
			for _, value := range condition.Values {
				placeholders = append(placeholders, b.bind(value))
			}
			return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", "))
		}
	}

	parts := make([]string, 0, len(condition.Values))
	for _, value := range condition.Values {
		parts = append(parts, fmt.Sprintf("%s %s %s", column, operators[condition.Op], b.bind(value)))
	}
	return group(parts, " AND ")
}

var operators = map[query.Op]string{
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// orderBy renders the sort keys with an id tiebreak.
func orderBy(collection *Collection, orders []query.Order) string {
	keys := make([]string, 0, len(orders)+1)
	tiebroken := false

	for _, order := range orders {
		field, ok := collection.Field(order.Field)
		if !ok {
			continue
		}
		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}
		keys = append(keys, field.Column+" "+direction)
		tiebroken = tiebroken || field.Name == FieldID
	}

	if !tiebroken {
		keys = append(keys, "id ASC")
	}
	return " ORDER BY " + strings.Join(keys, ", ")
}

func columnList(fields []*Field) string {
	columns := make([]string, 0, len(fields))
	for _, field := range fields {
		columns = append(columns, field.Column)
	}
	return strings.Join(columns, ", ")
}

func group(parts []string, separator string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, separator) + ")"
}

func sortedKeys(document Document) []string {
	keys := make([]string, 0, len(document))
	for key := range document {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
