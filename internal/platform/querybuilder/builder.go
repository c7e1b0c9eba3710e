// Package querybuilder assembles simple parameterized SELECT and UPDATE
// statements with $N placeholders. Anything with joins, CTEs or upsert
// clauses stays raw SQL in the repositories.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition renders one WHERE predicate, appending its bound values to args.
type Condition func(args *[]any) string

func Eq(column string, value any) Condition {
	return func(args *[]any) string {
		*args = append(*args, value)
		return column + " = " + placeholder(len(*args))
	}
}

// In renders column IN ($n, ...). An empty value set renders a predicate
// that matches nothing.
func In(column string, values []any) Condition {
	return func(args *[]any) string {
		if len(values) == 0 {
			return "1=0"
		}

		parts := make([]string, 0, len(values))
		for _, v := range values {
			*args = append(*args, v)
			parts = append(parts, placeholder(len(*args)))
		}
		return column + " IN (" + strings.Join(parts, ", ") + ")"
	}
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var args []any
	query := "SELECT " + strings.Join(b.columns, ", ") + " FROM " + b.table
	query += whereClause(b.where, &args)
	if len(b.orderBy) > 0 {
		query += " ORDER BY " + strings.Join(b.orderBy, ", ")
	}
	if b.limit > 0 {
		query += " LIMIT " + strconv.Itoa(b.limit)
	}

	return query, args, nil
}

type setClause struct {
	column string
	value  any
	// raw marks value as a SQL expression rendered verbatim, e.g. NOW().
	raw bool
}

type UpdateBuilder struct {
	table string
	sets  []setClause
	where []Condition
}

func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, value: value})
	return b
}

func (b *UpdateBuilder) SetExpr(column, expr string) *UpdateBuilder {
	b.sets = append(b.sets, setClause{column: column, value: expr, raw: true})
	return b
}

func (b *UpdateBuilder) Where(conditions ...Condition) *UpdateBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *UpdateBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("update table is required")
	}
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update sets are required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("update without where is refused")
	}

	var args []any
	parts := make([]string, 0, len(b.sets))
	for _, s := range b.sets {
		if s.raw {
			expr, ok := s.value.(string)
			if !ok {
				return "", nil, fmt.Errorf("invalid expression set value for %s", s.column)
			}
			parts = append(parts, s.column+" = "+expr)
			continue
		}
		args = append(args, s.value)
		parts = append(parts, s.column+" = "+placeholder(len(args)))
	}

	query := "UPDATE " + b.table + " SET " + strings.Join(parts, ", ")
	query += whereClause(b.where, &args)

	return query, args, nil
}

func whereClause(conditions []Condition, args *[]any) string {
	if len(conditions) == 0 {
		return ""
	}

	parts := make([]string, 0, len(conditions))
	for _, c := range conditions {
		parts = append(parts, c(args))
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}
