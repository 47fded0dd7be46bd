// Package constants provides centralized constant definitions for the form
// builder service. Values reused across packages live here so that the HTTP
// layer, the logger and the form engine agree on them.
package constants

// HTTP header names used throughout the application.
const (
	// HeaderRequestID is the HTTP header used for request tracking and correlation.
	// Used in: logging/logger.go
	HeaderRequestID = "X-Request-ID"

	// HeaderAuthorization is the standard HTTP Authorization header.
	// Used in: middleware/auth.go
	HeaderAuthorization = "Authorization"

	// HeaderContentType is the standard HTTP Content-Type header.
	HeaderContentType = "Content-Type"
)

// MIME types used in HTTP responses.
const (
	MIMEApplicationJSON = "application/json"
	MIMEApplicationYAML = "application/yaml"
	MIMETextHTML        = "text/html; charset=utf-8"
)

// Authentication schemes and prefixes.
const (
	// AuthSchemeBearer is the authentication scheme for JWT tokens.
	// Format: "Bearer <token>" in Authorization header
	AuthSchemeBearer = "Bearer"
)
