package record

import (
	"context"
	"fmt"
	"maps"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/query"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/ulid"
)

// Row is a Record stored by a Store
type Row struct {
	store  *Store
	table  *registry.Table
	values map[string]any
}

// Schema returns the table the row belongs to
func (r *Row) Schema() *registry.Table {
	return r.table
}

// Get returns the value of column, nil when unset
func (r *Row) Get(column string) any {
	return r.values[column]
}

// Set assigns a column value. Names the table does not have are ignored.
func (r *Row) Set(column string, value any) {
	if !r.table.HasColumn(column) {
		return
	}
	r.values[column] = value
}

// Values returns a copy of the row's values
func (r *Row) Values() map[string]any {
	return maps.Clone(r.values)
}

// Validate checks the row against its table schema
func (r *Row) Validate(ctx context.Context) map[string]string {
	return r.store.validator.Validate(r.table, r.values).Map()
}

// Insert writes the row. An empty auto-increment key is filled from the
// database, an empty text key gets a new ULID.
func (r *Row) Insert(ctx context.Context) error {
	pk := r.table.PrimaryKey()
	var generated *registry.Column

	if len(r.table.PrimaryKeys) == 1 && isBlank(r.values[pk]) {
		col, _ := r.table.Column(pk)
		switch {
		case col.AutoIncrement:
			generated = &col
			delete(r.values, pk)
		case col.Flags.Has(registry.FlagString):
			r.values[pk] = ulid.Generate()
		}
	}

	var columns []string
	var values []any
	for _, col := range r.table.Columns {
		v, ok := r.values[col.Name]
		if !ok || v == nil {
			continue
		}
		columns = append(columns, col.Name)
		values = append(values, v)
	}

	stmt, args := r.store.builder.Insert(r.table.Name, columns, values)

	if generated == nil {
		if _, err := r.store.exec(ctx, stmt, args); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", r.table.Name, err)
		}
		return nil
	}

	if returning, ok := r.store.builder.Returning(stmt, pk); ok {
		var id int64
		if err := r.store.driver.QueryRow(ctx, returning, args...).Scan(&id); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", r.table.Name, err)
		}
		r.values[pk] = id
		return nil
	}

	result, err := r.store.exec(ctx, stmt, args)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", r.table.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read generated key of %s: %w", r.table.Name, err)
	}
	r.values[pk] = id
	return nil
}

// Update writes every non-key column of the row, matching on the primary key
func (r *Row) Update(ctx context.Context) error {
	where, err := r.keyConditions()
	if err != nil {
		return err
	}

	var columns []string
	var values []any
	for _, col := range r.table.Columns {
		if col.PrimaryKey {
			continue
		}
		v, ok := r.values[col.Name]
		if !ok {
			continue
		}
		columns = append(columns, col.Name)
		values = append(values, v)
	}
	if len(columns) == 0 {
		return nil
	}

	stmt, args := r.store.builder.Update(r.table.Name, columns, values, where)
	if _, err := r.store.exec(ctx, stmt, args); err != nil {
		return fmt.Errorf("failed to update %s: %w", r.table.Name, err)
	}
	return nil
}

// Delete removes the row. Tables without a primary key, such as junction
// tables, are matched on every column value of the row.
func (r *Row) Delete(ctx context.Context) error {
	var where []query.Condition
	if len(r.table.PrimaryKeys) == 0 {
		var columns []string
		for _, col := range r.table.Columns {
			if _, ok := r.values[col.Name]; ok {
				columns = append(columns, col.Name)
			}
		}
		if len(columns) == 0 {
			return fmt.Errorf("refusing to delete from %s without conditions", r.table.Name)
		}
		where = query.Equal(columns, r.values)
	} else {
		var err error
		if where, err = r.keyConditions(); err != nil {
			return err
		}
	}

	stmt, args := r.store.builder.Delete(r.table.Name, where)
	if _, err := r.store.exec(ctx, stmt, args); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", r.table.Name, err)
	}
	return nil
}

func (r *Row) keyConditions() ([]query.Condition, error) {
	if len(r.table.PrimaryKeys) == 0 {
		return nil, fmt.Errorf("table %s: %w", r.table.Name, ErrNoPrimaryKey)
	}
	for _, pk := range r.table.PrimaryKeys {
		if isBlank(r.values[pk]) {
			return nil, fmt.Errorf("%s.%s is empty: %w", r.table.Name, pk, ErrNoPrimaryKey)
		}
	}
	return query.Equal(r.table.PrimaryKeys, r.values), nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
