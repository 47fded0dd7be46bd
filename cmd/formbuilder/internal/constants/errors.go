package constants

// Database error detection patterns.
// These patterns identify driver error conditions by matching against error
// messages from different database drivers.
// Used in: errors/errors.go
var (
	// DuplicateKeyPatterns indicate a duplicate key or unique constraint violation.
	DuplicateKeyPatterns = []string{
		"duplicate",
		"unique constraint",
		"UNIQUE constraint",
	}

	// ForeignKeyPatterns indicate a referential integrity violation, typically a
	// submitted link value that does not exist in the target table.
	ForeignKeyPatterns = []string{
		"foreign key",
		"FOREIGN KEY",
	}

	// ConnectionErrorPatterns indicate network or connection-related errors.
	ConnectionErrorPatterns = []string{
		"connection refused",
		"no such host",
		"timeout",
	}
)
