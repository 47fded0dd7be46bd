// Package record is the active-record layer the form builder reads from and
// writes to. It defines the narrow contracts the builder depends on and a
// SQL implementation backed by the database, registry and query packages.
package record

import (
	"context"
	"errors"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
)

var (
	// ErrNotFound is returned when no row matches a primary key
	ErrNotFound = errors.New("record not found")

	// ErrNoPrimaryKey is returned when a key based operation runs on a table
	// without a primary key, or on a row whose key is empty
	ErrNoPrimaryKey = errors.New("no primary key")

	// ErrUnknownColumn is returned when a filter or order names a column the
	// table does not have
	ErrUnknownColumn = errors.New("unknown column")
)

// Record is one row of a table
type Record interface {
	// Schema returns the table the row belongs to
	Schema() *registry.Table

	Get(column string) any
	Set(column string, value any)

	// Values returns a copy of the row's column values
	Values() map[string]any

	// Insert writes the row and populates its primary key
	Insert(ctx context.Context) error
	Update(ctx context.Context) error
	Delete(ctx context.Context) error
}

// Source creates and finds records
type Source interface {
	// New returns an empty row of table. It fails when the table is unknown.
	New(ctx context.Context, table string) (Record, error)

	// Find returns the rows of table whose columns equal filter, ordered by
	// orderBy terms of the form "column [ASC|DESC]"
	Find(ctx context.Context, table string, filter map[string]any, orderBy []string) ([]Record, error)
}

// Validator is implemented by records that can check their own values.
// The result maps column names to messages and is empty when valid.
type Validator interface {
	Validate(ctx context.Context) map[string]string
}

// EnumSource is implemented by sources that can list the allowed values of
// an enumerated column
type EnumSource interface {
	EnumValues(ctx context.Context, table, column string) ([]string, error)
}
