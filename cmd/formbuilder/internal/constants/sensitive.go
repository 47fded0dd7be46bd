package constants

// Sensitive field names that are masked in logs. Form submissions routinely
// carry credentials, so the logger redacts these keys before writing them.
// Used in: logging/logger.go
var SensitiveFields = []string{
	"password",
	"passwd",
	"token",
	"secret",
	"api_key",
	"authorization",
}

// RedactedPlaceholder is the string used to replace sensitive values in logs.
const RedactedPlaceholder = "***REDACTED***"
