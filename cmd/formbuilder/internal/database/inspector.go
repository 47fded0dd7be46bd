package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
)

// ErrTableNotFound is returned when a table does not exist or its name is
// not a valid identifier
var ErrTableNotFound = errors.New("table not found")

// TableInfo contains information about a database table
type TableInfo struct {
	Name        string
	Columns     []ColumnInfo
	ForeignKeys []ForeignKeyInfo
}

// ColumnInfo contains information about a table column
type ColumnInfo struct {
	Name          string
	Type          string
	Nullable      bool
	DefaultValue  *string
	IsPrimaryKey  bool
	IsUnique      bool
	AutoIncrement bool
	EnumValues    []string
}

// ForeignKeyInfo describes one referencing column of a table
type ForeignKeyInfo struct {
	Column           string
	ReferencesTable  string
	ReferencesColumn string
}

// ListTables returns a list of all user tables in the database
// Excludes system tables and internal metadata tables
func (d *baseDriver) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	var query string

	switch d.dialect {
	case DialectSQLite:
		query = `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`

	case DialectMySQL:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`

	case DialectPostgres:
		query = `SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = 'public' ORDER BY tablename`

	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", d.dialect)
	}

	rows, err := d.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table rows: %w", err)
	}

	return tables, nil
}

// GetTableInfo retrieves columns, foreign keys and enum values of a table.
// Foreign keys are returned in the ordinal order of their referencing columns.
func (d *baseDriver) GetTableInfo(ctx context.Context, tableName string) (*TableInfo, error) {
	// Validate table name to prevent SQL injection
	if !isValidIdentifier(tableName) {
		return nil, fmt.Errorf("invalid table name %q: %w", tableName, ErrTableNotFound)
	}

	columns, err := d.columns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s: %w", tableName, ErrTableNotFound)
	}

	foreignKeys, err := d.foreignKeys(ctx, tableName)
	if err != nil {
		return nil, err
	}

	ordinal := make(map[string]int, len(columns))
	for i, col := range columns {
		ordinal[col.Name] = i
	}
	sort.SliceStable(foreignKeys, func(i, j int) bool {
		return ordinal[foreignKeys[i].Column] < ordinal[foreignKeys[j].Column]
	})

	if err := d.enumValues(ctx, tableName, columns); err != nil {
		return nil, err
	}

	return &TableInfo{
		Name:        tableName,
		Columns:     columns,
		ForeignKeys: foreignKeys,
	}, nil
}

func (d *baseDriver) columns(ctx context.Context, tableName string) ([]ColumnInfo, error) {
	var query string
	var args []any

	switch d.dialect {
	case DialectSQLite:
		// Safe after identifier validation
		query = fmt.Sprintf("PRAGMA table_info(%s)", tableName)

	case DialectMySQL:
		query = `SELECT column_name, data_type, column_type, is_nullable, column_default, column_key, extra
		         FROM information_schema.columns
		         WHERE table_schema = DATABASE() AND table_name = ?
		         ORDER BY ordinal_position`
		args = []any{tableName}

	case DialectPostgres:
		query = `SELECT c.column_name, c.data_type, c.udt_name, c.is_nullable, c.column_default,
		                EXISTS (
		                    SELECT 1 FROM information_schema.table_constraints tc
		                    JOIN information_schema.key_column_usage kcu
		                        ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		                    WHERE tc.table_schema = c.table_schema AND tc.table_name = c.table_name
		                      AND tc.constraint_type = 'PRIMARY KEY' AND kcu.column_name = c.column_name
		                ) AS is_primary
		         FROM information_schema.columns c
		         WHERE c.table_schema = 'public' AND c.table_name = $1
		         ORDER BY c.ordinal_position`
		args = []any{tableName}

	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", d.dialect)
	}

	rows, err := d.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table info: %w", err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	primaryKeys := 0

	for rows.Next() {
		var col ColumnInfo
		var err error

		switch d.dialect {
		case DialectSQLite:
			// PRAGMA returns: cid, name, type, notnull, dflt_value, pk
			var cid int
			var notNull int
			var pk int
			var dfltValue *string

			err = rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dfltValue, &pk)
			if err == nil {
				col.Nullable = notNull == 0 && pk == 0
				col.DefaultValue = dfltValue
				col.IsPrimaryKey = pk > 0
			}

		case DialectMySQL:
			var columnType string
			var isNullable string
			var columnKey string
			var extra string

			err = rows.Scan(&col.Name, &col.Type, &columnType, &isNullable, &col.DefaultValue, &columnKey, &extra)
			if err == nil {
				col.Nullable = isNullable == "YES"
				col.IsPrimaryKey = columnKey == "PRI"
				col.IsUnique = columnKey == "UNI"
				col.AutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
				col.EnumValues = parseEnumType(columnType)
			}

		case DialectPostgres:
			var udtName string
			var isNullable string

			err = rows.Scan(&col.Name, &col.Type, &udtName, &isNullable, &col.DefaultValue, &col.IsPrimaryKey)
			if err == nil {
				col.Nullable = isNullable == "YES"
				col.AutoIncrement = col.DefaultValue != nil && strings.HasPrefix(*col.DefaultValue, "nextval(")
				if col.Type == "USER-DEFINED" {
					// resolved against pg_enum in enumValues
					col.Type = udtName
				}
			}
		}

		if err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		if col.IsPrimaryKey {
			primaryKeys++
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}

	// A single INTEGER PRIMARY KEY is SQLite's rowid alias
	if d.dialect == DialectSQLite && primaryKeys == 1 {
		for i := range columns {
			if columns[i].IsPrimaryKey && strings.EqualFold(columns[i].Type, "INTEGER") {
				columns[i].AutoIncrement = true
			}
		}
	}

	return columns, nil
}

func (d *baseDriver) foreignKeys(ctx context.Context, tableName string) ([]ForeignKeyInfo, error) {
	var query string
	var args []any

	switch d.dialect {
	case DialectSQLite:
		query = fmt.Sprintf("PRAGMA foreign_key_list(%s)", tableName)

	case DialectMySQL:
		query = `SELECT column_name, referenced_table_name, referenced_column_name
		         FROM information_schema.key_column_usage
		         WHERE table_schema = DATABASE() AND table_name = ? AND referenced_table_name IS NOT NULL`
		args = []any{tableName}

	case DialectPostgres:
		query = `SELECT kcu.column_name, ccu.table_name, ccu.column_name
		         FROM information_schema.table_constraints AS tc
		         JOIN information_schema.key_column_usage AS kcu
		             ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		         JOIN information_schema.constraint_column_usage AS ccu
		             ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		         WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public' AND tc.table_name = $1`
		args = []any{tableName}

	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", d.dialect)
	}

	rows, err := d.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var foreignKeys []ForeignKeyInfo
	for rows.Next() {
		var fk ForeignKeyInfo

		if d.dialect == DialectSQLite {
			// PRAGMA returns: id, seq, table, from, to, on_update, on_delete, match
			var id, seq int
			var to sql.NullString
			var onUpdate, onDelete, match string

			if err := rows.Scan(&id, &seq, &fk.ReferencesTable, &fk.Column, &to, &onUpdate, &onDelete, &match); err != nil {
				return nil, fmt.Errorf("failed to scan foreign key: %w", err)
			}
			fk.ReferencesColumn = to.String
		} else if err := rows.Scan(&fk.Column, &fk.ReferencesTable, &fk.ReferencesColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}

		foreignKeys = append(foreignKeys, fk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign key rows: %w", err)
	}
	rows.Close()

	// SQLite leaves the target column empty when the key references the
	// target's primary key implicitly
	for i, fk := range foreignKeys {
		if fk.ReferencesColumn != "" {
			continue
		}
		target, err := d.columns(ctx, fk.ReferencesTable)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve primary key of %s: %w", fk.ReferencesTable, err)
		}
		for _, col := range target {
			if col.IsPrimaryKey {
				foreignKeys[i].ReferencesColumn = col.Name
				break
			}
		}
	}

	return foreignKeys, nil
}

// enumValues fills EnumValues for enum-like columns: PostgreSQL enum types and
// SQLite CHECK (col IN (...)) constraints. MySQL enums are parsed from
// column_type while scanning columns.
func (d *baseDriver) enumValues(ctx context.Context, tableName string, columns []ColumnInfo) error {
	switch d.dialect {
	case DialectPostgres:
		for i, col := range columns {
			values, err := d.postgresEnum(ctx, col.Type)
			if err != nil {
				return err
			}
			if len(values) > 0 {
				columns[i].EnumValues = values
			}
		}

	case DialectSQLite:
		var ddl sql.NullString
		err := d.QueryRow(ctx, `SELECT sql FROM sqlite_master WHERE type='table' AND name = ?`, tableName).Scan(&ddl)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read table definition: %w", err)
		}
		for i, col := range columns {
			if values := parseCheckIn(ddl.String, col.Name); len(values) > 0 {
				columns[i].EnumValues = values
			}
		}
	}

	return nil
}

func (d *baseDriver) postgresEnum(ctx context.Context, typeName string) ([]string, error) {
	rows, err := d.Query(ctx, `SELECT e.enumlabel FROM pg_type t JOIN pg_enum e ON e.enumtypid = t.oid
	                           WHERE t.typname = $1 ORDER BY e.enumsortorder`, typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to query enum values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan enum value: %w", err)
		}
		values = append(values, label)
	}
	return values, rows.Err()
}

// TableExists checks if a table exists in the database
func (d *baseDriver) TableExists(ctx context.Context, tableName string) (bool, error) {
	tables, err := d.ListTables(ctx)
	if err != nil {
		return false, err
	}

	for _, table := range tables {
		if table == tableName {
			return true, nil
		}
	}

	return false, nil
}

// Schema converts the introspected table into the registry model
func (ti *TableInfo) Schema() *registry.Table {
	table := &registry.Table{Name: ti.Name}

	for _, col := range ti.Columns {
		table.Columns = append(table.Columns, registry.Column{
			Name:          col.Name,
			DBType:        col.Type,
			Flags:         InferTypeFlags(col.Type, col.Nullable),
			Nullable:      col.Nullable,
			Unique:        col.IsUnique,
			DefaultValue:  col.DefaultValue,
			PrimaryKey:    col.IsPrimaryKey,
			AutoIncrement: col.AutoIncrement,
			EnumValues:    col.EnumValues,
		})
		if col.IsPrimaryKey {
			table.PrimaryKeys = append(table.PrimaryKeys, col.Name)
		}
	}

	for _, fk := range ti.ForeignKeys {
		table.Links = append(table.Links, registry.Link{
			Column:       fk.Column,
			Table:        fk.ReferencesTable,
			TargetColumn: fk.ReferencesColumn,
		})
	}

	return table
}

// InferTypeFlags maps a database column type to registry type flags
func InferTypeFlags(dbType string, nullable bool) registry.TypeFlag {
	lower := strings.ToLower(dbType)

	var flags registry.TypeFlag
	switch {
	case strings.Contains(lower, "bool"):
		flags = registry.FlagBool
	case strings.Contains(lower, "int") || strings.Contains(lower, "serial"):
		flags = registry.FlagInt
	case strings.Contains(lower, "timestamp") || strings.Contains(lower, "datetime"):
		flags = registry.FlagDate | registry.FlagTime
	case strings.Contains(lower, "date"):
		flags = registry.FlagDate
	case strings.Contains(lower, "time"):
		flags = registry.FlagTime
	case strings.Contains(lower, "blob") || strings.Contains(lower, "bytea") || strings.Contains(lower, "binary"):
		flags = registry.FlagString | registry.FlagText | registry.FlagBlob
	case strings.Contains(lower, "text") || strings.Contains(lower, "clob") || strings.Contains(lower, "json"):
		flags = registry.FlagString | registry.FlagText
	default:
		// varchar, char, decimal, enum and unknown types
		flags = registry.FlagString
	}

	if !nullable {
		flags |= registry.FlagNotNull
	}
	return flags
}

// parseEnumType extracts the values of a MySQL enum('a','b') column type
func parseEnumType(columnType string) []string {
	lower := strings.ToLower(columnType)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(lower, ")") {
		return nil
	}
	return parseQuotedList(columnType[len("enum(") : len(columnType)-1])
}

// parseCheckIn extracts the values of a CHECK (column IN ('a','b')) constraint
func parseCheckIn(ddl, column string) []string {
	if ddl == "" {
		return nil
	}
	pattern := `(?i)CHECK\s*\(\s*["` + "`" + `\[]?` + regexp.QuoteMeta(column) + `["` + "`" + `\]]?\s+IN\s*\(([^)]*)\)`
	match := regexp.MustCompile(pattern).FindStringSubmatch(ddl)
	if match == nil {
		return nil
	}
	return parseQuotedList(match[1])
}

// parseQuotedList returns the single-quoted literals of a SQL value list.
// Doubled quotes inside a literal are unescaped.
func parseQuotedList(list string) []string {
	var values []string
	for i := 0; i < len(list); i++ {
		if list[i] != '\'' {
			continue
		}
		var sb strings.Builder
		j := i + 1
		for ; j < len(list); j++ {
			if list[j] == '\'' {
				if j+1 < len(list) && list[j+1] == '\'' {
					sb.WriteByte('\'')
					j++
					continue
				}
				break
			}
			sb.WriteByte(list[j])
		}
		values = append(values, sb.String())
		i = j
	}
	return values
}

// isValidIdentifier validates that an identifier (table/column name) contains only safe characters
func isValidIdentifier(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}

	for i, ch := range name {
		if i == 0 {
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_') {
				return false
			}
		} else {
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_') {
				return false
			}
		}
	}

	return true
}

// IsValidIdentifier reports whether name is safe to use as a table or column name
func IsValidIdentifier(name string) bool {
	return isValidIdentifier(name)
}
