// Package query provides SQL query building functionality with dialect-aware
// query generation. It supports PostgreSQL, MySQL, and SQLite dialects with
// proper identifier escaping and parameterized queries.
package query

import (
	"fmt"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/database"
)

// Operator constants for safe SQL operations
const (
	OpEqual  = "="
	OpIn     = "IN"
	OpIsNull = "IS NULL"
)

// Builder provides methods for building SQL queries
type Builder interface {
	Select(tableName string, columns []string, where []Condition, orderBy []Order, limit, offset int) (string, []any)
	Insert(tableName string, columns []string, values []any) (string, []any)
	Update(tableName string, columns []string, values []any, where []Condition) (string, []any)
	Delete(tableName string, where []Condition) (string, []any)

	// Returning appends a RETURNING clause where the dialect supports it and
	// reports whether it did
	Returning(query string, column string) (string, bool)

	// Dialect returns the database dialect
	Dialect() database.DialectType
}

// Condition represents a WHERE clause condition
type Condition struct {
	Column   string
	Operator string
	Value    any
}

// Order is one ORDER BY term
type Order struct {
	Column     string
	Descending bool
}

// ParseOrder parses an order term of the form "column", "column ASC" or
// "column DESC". The column must be a plain identifier.
func ParseOrder(term string) (Order, error) {
	fields := strings.Fields(term)
	if len(fields) == 0 || len(fields) > 2 {
		return Order{}, fmt.Errorf("invalid order term: %q", term)
	}

	order := Order{Column: fields[0]}
	if !database.IsValidIdentifier(order.Column) {
		return Order{}, fmt.Errorf("invalid order column: %q", order.Column)
	}

	if len(fields) == 2 {
		switch strings.ToUpper(fields[1]) {
		case "ASC":
		case "DESC":
			order.Descending = true
		default:
			return Order{}, fmt.Errorf("invalid order direction in %q", term)
		}
	}

	return order, nil
}

// ParseOrders parses every term with ParseOrder
func ParseOrders(terms []string) ([]Order, error) {
	orders := make([]Order, 0, len(terms))
	for _, term := range terms {
		order, err := ParseOrder(term)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// builder implements Builder interface
type builder struct {
	dialect database.DialectType
}

// NewBuilder creates a new query builder for the specified dialect
func NewBuilder(dialect database.DialectType) Builder {
	return &builder{
		dialect: dialect,
	}
}

// Dialect returns the database dialect
func (b *builder) Dialect() database.DialectType {
	return b.dialect
}

// Select generates SELECT query with optional WHERE, ORDER BY, LIMIT, OFFSET
func (b *builder) Select(tableName string, columns []string, where []Condition, orderBy []Order, limit, offset int) (string, []any) {
	var sb strings.Builder
	args := []any{}

	sb.WriteString("SELECT ")
	if len(columns) == 0 {
		sb.WriteString("*")
	} else {
		for i, col := range columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(b.escapeIdentifier(col))
		}
	}

	sb.WriteString(" FROM ")
	sb.WriteString(b.escapeIdentifier(tableName))

	args = b.buildWhereClause(&sb, where, args)

	if len(orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, order := range orderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(b.escapeIdentifier(order.Column))
			if order.Descending {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	}

	if limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.placeholder(len(args) + 1))
		args = append(args, limit)

		if offset > 0 {
			sb.WriteString(" OFFSET ")
			sb.WriteString(b.placeholder(len(args) + 1))
			args = append(args, offset)
		}
	}

	return sb.String(), args
}

// Insert generates INSERT query. With no columns it inserts a row of defaults.
func (b *builder) Insert(tableName string, columns []string, values []any) (string, []any) {
	var sb strings.Builder

	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.escapeIdentifier(tableName))

	if len(columns) == 0 {
		if b.dialect == database.DialectMySQL {
			sb.WriteString(" () VALUES ()")
		} else {
			sb.WriteString(" DEFAULT VALUES")
		}
		return sb.String(), nil
	}

	sb.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.escapeIdentifier(col))
	}

	sb.WriteString(") VALUES (")
	for i := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.placeholder(i + 1))
	}
	sb.WriteString(")")

	return sb.String(), values
}

// Update generates UPDATE query. Columns and values are paired by position so
// the generated statement is stable.
func (b *builder) Update(tableName string, columns []string, values []any, where []Condition) (string, []any) {
	var sb strings.Builder
	args := []any{}

	sb.WriteString("UPDATE ")
	sb.WriteString(b.escapeIdentifier(tableName))
	sb.WriteString(" SET ")

	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.escapeIdentifier(col))
		sb.WriteString(" = ")
		sb.WriteString(b.placeholder(len(args) + 1))
		args = append(args, values[i])
	}

	args = b.buildWhereClause(&sb, where, args)

	return sb.String(), args
}

// Delete generates DELETE query
func (b *builder) Delete(tableName string, where []Condition) (string, []any) {
	var sb strings.Builder
	args := []any{}

	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.escapeIdentifier(tableName))

	args = b.buildWhereClause(&sb, where, args)

	return sb.String(), args
}

// Returning appends RETURNING for PostgreSQL, which has no LastInsertId
func (b *builder) Returning(query string, column string) (string, bool) {
	if b.dialect != database.DialectPostgres {
		return query, false
	}
	return query + " RETURNING " + b.escapeIdentifier(column), true
}

// escapeIdentifier escapes table/column names based on dialect
func (b *builder) escapeIdentifier(name string) string {
	switch b.dialect {
	case database.DialectPostgres:
		return fmt.Sprintf(`"%s"`, name)
	case database.DialectMySQL:
		return fmt.Sprintf("`%s`", name)
	case database.DialectSQLite:
		// quoted so reserved words such as "group" work as table names
		return fmt.Sprintf(`"%s"`, name)
	default:
		return name
	}
}

// placeholder returns the appropriate placeholder for parameterized queries
func (b *builder) placeholder(position int) string {
	switch b.dialect {
	case database.DialectPostgres:
		return fmt.Sprintf("$%d", position)
	default:
		return "?"
	}
}

// buildWhereClause builds a WHERE clause from conditions and returns the updated args slice
func (b *builder) buildWhereClause(sb *strings.Builder, where []Condition, args []any) []any {
	if len(where) == 0 {
		return args
	}

	sb.WriteString(" WHERE ")
	for i, cond := range where {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(b.escapeIdentifier(cond.Column))
		sb.WriteString(" ")
		sb.WriteString(cond.Operator)

		switch cond.Operator {
		case OpIsNull:
		case OpIn:
			values, ok := cond.Value.([]any)
			if !ok {
				values = []any{cond.Value}
			}
			sb.WriteString(" (")
			for j, v := range values {
				if j > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(b.placeholder(len(args) + 1))
				args = append(args, v)
			}
			sb.WriteString(")")
		default:
			sb.WriteString(" ")
			sb.WriteString(b.placeholder(len(args) + 1))
			args = append(args, cond.Value)
		}
	}

	return args
}

// Equal builds equality conditions for every entry of values, in the order
// of columns. A nil value becomes an IS NULL test.
func Equal(columns []string, values map[string]any) []Condition {
	conditions := make([]Condition, 0, len(columns))
	for _, col := range columns {
		v := values[col]
		if v == nil {
			conditions = append(conditions, Condition{Column: col, Operator: OpIsNull})
			continue
		}
		conditions = append(conditions, Condition{Column: col, Operator: OpEqual, Value: v})
	}
	return conditions
}
