package constants

import "time"

// Timeout and duration constants used throughout the application.
// These constants bound blocking operations so that a stuck database or
// client cannot hold a request forever.
const (
	// ShutdownTimeout is the maximum time allowed for graceful shutdown.
	// Used in: server/server.go
	ShutdownTimeout = 30 * time.Second

	// HTTPReadTimeout is the maximum duration for reading the entire request,
	// including the body (form submissions may carry file uploads).
	// Used in: server/server.go
	HTTPReadTimeout = 30 * time.Second

	// HTTPWriteTimeout is the maximum duration before timing out writes of the response.
	// Used in: server/server.go
	HTTPWriteTimeout = 30 * time.Second

	// HTTPIdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Used in: server/server.go
	HTTPIdleTimeout = 60 * time.Second

	// HealthCheckTimeout is the maximum time allowed for the database ping
	// behind the health endpoint.
	// Used in: server/server.go
	HealthCheckTimeout = 5 * time.Second

	// JWTClockSkew is the tolerance for JWT token expiration time validation.
	// Used in: middleware/auth.go
	JWTClockSkew = 30 * time.Second

	// SlowQueryThreshold is the duration threshold for logging slow database queries.
	// Used in: logging/logger.go, record/store.go
	SlowQueryThreshold = 500 * time.Millisecond
)
