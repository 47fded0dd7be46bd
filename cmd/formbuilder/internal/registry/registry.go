// Package registry provides the in-memory schema model used by the form
// builder. Tables are introspected once and cached in a thread-safe registry
// backed by sync.Map, so repeated form generation does not hit the database
// catalog on every request.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TypeFlag is a bitmask describing how a column's values behave. Several
// flags may be set on one column (a DATETIME column is FlagDate|FlagTime).
type TypeFlag uint16

const (
	FlagInt TypeFlag = 1 << iota
	FlagString
	FlagText
	FlagDate
	FlagTime
	FlagBool
	FlagBlob
	FlagNotNull
)

var flagNames = []struct {
	flag TypeFlag
	name string
}{
	{FlagInt, "int"},
	{FlagString, "string"},
	{FlagText, "text"},
	{FlagDate, "date"},
	{FlagTime, "time"},
	{FlagBool, "bool"},
	{FlagBlob, "blob"},
	{FlagNotNull, "notnull"},
}

// Has reports whether every bit of flag is set.
func (f TypeFlag) Has(flag TypeFlag) bool {
	return flag != 0 && f&flag == flag
}

// Any reports whether at least one bit of flag is set.
func (f TypeFlag) Any(flag TypeFlag) bool {
	return f&flag != 0
}

// String renders the flags as a "|" separated list, e.g. "int|notnull".
func (f TypeFlag) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Column represents a single column of a table
type Column struct {
	Name          string   `json:"name"`
	DBType        string   `json:"db_type"`
	Flags         TypeFlag `json:"flags"`
	Nullable      bool     `json:"nullable"`
	Unique        bool     `json:"unique"`
	DefaultValue  *string  `json:"default_value,omitempty"`
	PrimaryKey    bool     `json:"primary_key"`
	AutoIncrement bool     `json:"auto_increment"`
	EnumValues    []string `json:"enum_values,omitempty"`
}

// Link is a foreign key: Column references Table.TargetColumn.
type Link struct {
	Column       string `json:"column"`
	Table        string `json:"table"`
	TargetColumn string `json:"target_column"`
}

// String returns the link target in "table:column" form.
func (l Link) String() string {
	return l.Table + ":" + l.TargetColumn
}

// ParseLink builds a Link for column from a "table:column" reference.
func ParseLink(column, ref string) (Link, error) {
	table, target, ok := strings.Cut(ref, ":")
	if !ok || table == "" || target == "" {
		return Link{}, fmt.Errorf("invalid link reference %q for column %s: expected table:column", ref, column)
	}
	return Link{Column: column, Table: table, TargetColumn: target}, nil
}

// Table represents a database table schema
type Table struct {
	Name        string   `json:"name"`
	Columns     []Column `json:"columns"`
	PrimaryKeys []string `json:"primary_keys"`
	Links       []Link   `json:"links"`
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Link returns the foreign key declared on column, if any.
func (t *Table) Link(column string) (Link, bool) {
	for _, l := range t.Links {
		if l.Column == column {
			return l, true
		}
	}
	return Link{}, false
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *Table) IsPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKeys {
		if pk == column {
			return true
		}
	}
	return false
}

// PrimaryKey returns the first primary key column, or "" when the table has none.
func (t *Table) PrimaryKey() string {
	if len(t.PrimaryKeys) == 0 {
		return ""
	}
	return t.PrimaryKeys[0]
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		Name:        t.Name,
		Columns:     make([]Column, len(t.Columns)),
		PrimaryKeys: append([]string(nil), t.PrimaryKeys...),
		Links:       append([]Link(nil), t.Links...),
	}
	for i, col := range t.Columns {
		if col.EnumValues != nil {
			col.EnumValues = append([]string(nil), col.EnumValues...)
		}
		c.Columns[i] = col
	}
	return c
}

// SchemaRegistry manages the in-memory cache of table schemas
type SchemaRegistry struct {
	tables sync.Map // map[string]*Table
}

// NewSchemaRegistry creates a new schema registry
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{}
}

// Set stores or updates a table schema in the registry
func (r *SchemaRegistry) Set(table *Table) error {
	if table == nil {
		return fmt.Errorf("table cannot be nil")
	}

	if table.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	r.tables.Store(table.Name, table.Clone())
	return nil
}

// Get retrieves a copy of a table schema from the registry
func (r *SchemaRegistry) Get(name string) (*Table, bool) {
	value, ok := r.tables.Load(name)
	if !ok {
		return nil, false
	}

	table, ok := value.(*Table)
	if !ok {
		return nil, false
	}

	return table.Clone(), true
}

// Delete removes a table schema from the registry
func (r *SchemaRegistry) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	r.tables.Delete(name)
	return nil
}

// Exists checks if a table exists in the registry
func (r *SchemaRegistry) Exists(name string) bool {
	_, ok := r.tables.Load(name)
	return ok
}

// List returns all table names in the registry, sorted
func (r *SchemaRegistry) List() []string {
	var names []string

	r.tables.Range(func(key, value any) bool {
		names = append(names, key.(string))
		return true
	})

	sort.Strings(names)
	return names
}

// Clear removes all tables from the registry
func (r *SchemaRegistry) Clear() {
	r.tables.Range(func(key, value any) bool {
		r.tables.Delete(key)
		return true
	})
}

// Count returns the number of tables in the registry
func (r *SchemaRegistry) Count() int {
	count := 0
	r.tables.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
