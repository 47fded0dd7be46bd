package record

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/database"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/query"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/validation"
)

// Storage layouts used for date and time values read back from drivers that
// return time.Time
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DatetimeLayout = DateLayout + " " + TimeLayout
)

// Store is a Source backed by a SQL database. Table schemas are introspected
// on first use and cached in the registry.
type Store struct {
	driver    database.Driver
	registry  *registry.SchemaRegistry
	builder   query.Builder
	validator *validation.SchemaValidator
	logger    *logging.Logger
}

// NewStore creates a store over an open driver
func NewStore(driver database.Driver, reg *registry.SchemaRegistry, logger *logging.Logger) *Store {
	if reg == nil {
		reg = registry.NewSchemaRegistry()
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Store{
		driver:    driver,
		registry:  reg,
		builder:   query.NewBuilder(driver.Dialect()),
		validator: validation.NewSchemaValidator(),
		logger:    logger.WithComponent("record"),
	}
}

// Validator returns the validator used by Row.Validate, so callers can add rules
func (s *Store) Validator() *validation.SchemaValidator {
	return s.validator
}

// Tables lists the tables of the database
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	return s.driver.ListTables(ctx)
}

// Table returns the schema of name, introspecting it on first use
func (s *Store) Table(ctx context.Context, name string) (*registry.Table, error) {
	if table, ok := s.registry.Get(name); ok {
		return table, nil
	}

	info, err := s.driver.GetTableInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	table := info.Schema()
	if err := s.registry.Set(table); err != nil {
		return nil, err
	}
	s.logger.Debugf("cached schema of table %s (%d columns, %d links)", name, len(table.Columns), len(table.Links))

	for _, col := range table.Columns {
		if n, ok := declaredLength(col.DBType); ok {
			s.validator.AddRule(table.Name, col.Name, validation.MaxLengthRule(col.Name, n))
		}
	}

	return table, nil
}

// declaredLength returns N of CHAR(N) and VARCHAR(N) column types
func declaredLength(dbType string) (int, bool) {
	t := strings.ToLower(dbType)
	if !strings.Contains(t, "char") {
		return 0, false
	}
	_, rest, ok := strings.Cut(t, "(")
	if !ok {
		return 0, false
	}
	size, _, ok := strings.Cut(rest, ")")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(size))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// New returns an empty row of table
func (s *Store) New(ctx context.Context, table string) (Record, error) {
	schema, err := s.Table(ctx, table)
	if err != nil {
		return nil, err
	}
	return &Row{store: s, table: schema, values: make(map[string]any)}, nil
}

// Find returns the rows of table matching filter
func (s *Store) Find(ctx context.Context, table string, filter map[string]any, orderBy []string) ([]Record, error) {
	rows, err := s.find(ctx, table, filter, orderBy, 0)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = row
	}
	return records, nil
}

// Get loads the row of table whose primary key equals key
func (s *Store) Get(ctx context.Context, table string, key any) (*Row, error) {
	schema, err := s.Table(ctx, table)
	if err != nil {
		return nil, err
	}

	pk := schema.PrimaryKey()
	if pk == "" {
		return nil, fmt.Errorf("table %s: %w", table, ErrNoPrimaryKey)
	}

	rows, err := s.find(ctx, table, map[string]any{pk: key}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %v: %w", table, key, ErrNotFound)
	}
	return rows[0], nil
}

// EnumValues returns the values an enumerated column accepts
func (s *Store) EnumValues(ctx context.Context, table, column string) ([]string, error) {
	schema, err := s.Table(ctx, table)
	if err != nil {
		return nil, err
	}

	col, ok := schema.Column(column)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", table, column, ErrUnknownColumn)
	}
	if len(col.EnumValues) == 0 {
		return nil, fmt.Errorf("%s.%s is not an enumerated column", table, column)
	}
	return slices.Clone(col.EnumValues), nil
}

func (s *Store) find(ctx context.Context, table string, filter map[string]any, orderBy []string, limit int) ([]*Row, error) {
	schema, err := s.Table(ctx, table)
	if err != nil {
		return nil, err
	}

	columns := slices.Sorted(maps.Keys(filter))
	for _, col := range columns {
		if !schema.HasColumn(col) {
			return nil, fmt.Errorf("filter on %s.%s: %w", table, col, ErrUnknownColumn)
		}
	}

	orders, err := query.ParseOrders(orderBy)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		if !schema.HasColumn(order.Column) {
			return nil, fmt.Errorf("order by %s.%s: %w", table, order.Column, ErrUnknownColumn)
		}
	}

	stmt, args := s.builder.Select(table, schema.ColumnNames(), query.Equal(columns, filter), orders, limit, 0)

	start := time.Now()
	rows, err := s.driver.Query(ctx, stmt, args...)
	s.logger.LogSlowQuery(stmt, time.Since(start), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	return s.scanRows(rows, schema)
}

func (s *Store) scanRows(rows *sql.Rows, schema *registry.Table) ([]*Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []*Row
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := &Row{store: s, table: schema, values: make(map[string]any, len(columns))}
		for i, name := range columns {
			col, _ := schema.Column(name)
			row.values[name] = normalizeValue(values[i], col)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) exec(ctx context.Context, stmt string, args []any) (sql.Result, error) {
	start := time.Now()
	result, err := s.driver.Exec(ctx, stmt, args...)
	s.logger.LogSlowQuery(stmt, time.Since(start), args...)
	return result, err
}

// normalizeValue converts driver values to the forms the form builder
// works with: text as string, integers as int64, booleans as bool and
// dates in their storage layout.
func normalizeValue(val any, col registry.Column) any {
	if b, ok := val.([]byte); ok {
		val = string(b)
	}

	switch v := val.(type) {
	case nil:
		return nil
	case time.Time:
		switch {
		case col.Flags.Has(registry.FlagDate | registry.FlagTime):
			return v.Format(DatetimeLayout)
		case col.Flags.Has(registry.FlagDate):
			return v.Format(DateLayout)
		case col.Flags.Has(registry.FlagTime):
			return v.Format(TimeLayout)
		}
		return v.Format(time.RFC3339)
	case string:
		if col.Flags.Has(registry.FlagInt) {
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
		if col.Flags.Has(registry.FlagBool) {
			return v == "1" || v == "t" || strings.EqualFold(v, "true")
		}
	case int64:
		if col.Flags.Has(registry.FlagBool) {
			return v != 0
		}
	}

	return val
}
