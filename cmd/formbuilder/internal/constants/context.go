package constants

// Context keys for storing and retrieving values from request contexts.
const (
	// ContextKeyRequestID is the context key for storing request IDs.
	// Used in: logging/logger.go
	ContextKeyRequestID = "request_id"

	// ContextKeyUserClaims is the context key for authenticated JWT claims.
	// Used in: middleware/auth.go
	ContextKeyUserClaims = "user_claims"
)
