// Package database provides database abstraction and connection management.
// It supports multiple database dialects (PostgreSQL, MySQL, SQLite) with
// automatic dialect detection from connection strings, and exposes the
// catalog introspection the form builder derives its forms from.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DialectType represents the type of database dialect
type DialectType string

const (
	DialectPostgres DialectType = "postgres"
	DialectMySQL    DialectType = "mysql"
	DialectSQLite   DialectType = "sqlite"
)

// Driver defines the interface for database operations
type Driver interface {
	// Connect establishes a connection to the database
	Connect(ctx context.Context) error

	// Close closes the database connection
	Close() error

	// Exec executes a query without returning rows
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// QueryRow executes a query that returns at most one row
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row

	// Ping verifies the connection to the database is still alive
	Ping(ctx context.Context) error

	// Dialect returns the database dialect type
	Dialect() DialectType

	// ListTables returns a list of all user tables in the database
	ListTables(ctx context.Context) ([]string, error)

	// GetTableInfo retrieves columns, keys, foreign keys and enum values of a table
	GetTableInfo(ctx context.Context, tableName string) (*TableInfo, error)

	// TableExists checks if a table exists in the database
	TableExists(ctx context.Context, tableName string) (bool, error)
}

// Config holds database connection configuration
type Config struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// baseDriver implements common functionality for all database drivers
type baseDriver struct {
	db         *sql.DB
	dialect    DialectType
	driverName string
	dsn        string
	config     Config
}

// Connect establishes a connection to the database
func (d *baseDriver) Connect(ctx context.Context) error {
	var err error

	d.db, err = sql.Open(d.driverName, d.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db.SetMaxOpenConns(d.config.MaxOpenConns)
	d.db.SetMaxIdleConns(d.config.MaxIdleConns)
	d.db.SetConnMaxLifetime(d.config.ConnMaxLifetime)

	if err := d.db.PingContext(ctx); err != nil {
		d.db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *baseDriver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Exec executes a query without returning rows
func (d *baseDriver) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows
func (d *baseDriver) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row
func (d *baseDriver) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

// Ping verifies the connection to the database is still alive
func (d *baseDriver) Ping(ctx context.Context) error {
	if d.db == nil {
		return fmt.Errorf("database is not connected")
	}
	return d.db.PingContext(ctx)
}

// Dialect returns the database dialect type
func (d *baseDriver) Dialect() DialectType {
	return d.dialect
}

// NewDriver creates a new database driver based on the connection string
func NewDriver(config Config) (Driver, error) {
	dialect, driverName, dsn, err := detectDialect(config.ConnectionString)
	if err != nil {
		return nil, err
	}

	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}

	driver := &baseDriver{
		dialect:    dialect,
		driverName: driverName,
		dsn:        dsn,
		config:     config,
	}

	return driver, nil
}

// detectDialect detects the database dialect and the database/sql driver
// name from the connection string
func detectDialect(connectionString string) (DialectType, string, string, error) {
	if connectionString == "" {
		return "", "", "", fmt.Errorf("connection string is empty")
	}

	lower := strings.ToLower(connectionString)

	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres, "postgres", connectionString, nil
	}

	// pgx:// selects the pgx stdlib driver for the same PostgreSQL URL
	if strings.HasPrefix(lower, "pgx://") {
		return DialectPostgres, "pgx", "postgres://" + connectionString[len("pgx://"):], nil
	}

	if strings.HasPrefix(lower, "mysql://") {
		dsn := strings.TrimPrefix(connectionString, "mysql://")
		return DialectMySQL, "mysql", dsn, nil
	}

	if strings.HasPrefix(lower, "sqlite://") {
		dsn := strings.TrimPrefix(connectionString, "sqlite://")

		// Shared cache lets every pooled connection see the same in-memory database
		if dsn == ":memory:" {
			dsn = "file::memory:?mode=memory&cache=shared"
		}

		return DialectSQLite, "sqlite", dsn, nil
	}

	// Standard MySQL DSN (user:password@tcp(host:port)/database)
	if strings.Contains(lower, "@tcp(") || strings.Contains(lower, "charset=") {
		return DialectMySQL, "mysql", connectionString, nil
	}

	if lower == ":memory:" || strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3") {
		return DialectSQLite, "sqlite", connectionString, nil
	}

	// Key/value PostgreSQL DSN
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return DialectPostgres, "postgres", connectionString, nil
	}

	return "", "", "", fmt.Errorf("unable to detect database dialect from connection string: %s", connectionString)
}
