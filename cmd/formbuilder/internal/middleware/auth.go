// Package middleware provides HTTP middleware for the form server. Bearer
// JWT authentication guards form submission, and optionally rendering, when
// a signing secret is configured.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/constants"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
)

// ContextKey type for context keys
type ContextKey string

const (
	// UserClaimsKey is the key for user claims in request context
	UserClaimsKey ContextKey = constants.ContextKeyUserClaims
)

// UserClaims represents the claims extracted from JWT token
type UserClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT middleware configuration. Path patterns match
// exactly, by prefix when they end in "*", or by suffix when they start
// with "*" (so "*:submit" matches every submit route).
type JWTConfig struct {
	Secret         string
	ProtectedPaths []string
	// RequiredRoles maps path patterns to roles of which the caller needs one
	RequiredRoles map[string][]string
	Logger        *logging.Logger
}

// JWTMiddleware provides JWT authentication middleware
type JWTMiddleware struct {
	config JWTConfig
	logger *logging.Logger
}

// NewJWTMiddleware creates a new JWT middleware instance
func NewJWTMiddleware(config JWTConfig) *JWTMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &JWTMiddleware{
		config: config,
		logger: logger.WithComponent("auth"),
	}
}

// Authenticate is the main JWT authentication middleware
func (m *JWTMiddleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if m.config.Secret == "" || !m.requiresAuth(path) {
			next(w, r)
			return
		}

		token, err := m.extractToken(r)
		if err != nil {
			m.logAuthFailure(r, "missing or invalid authorization header", err)
			m.writeAuthError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		claims, err := m.validateToken(token)
		if err != nil {
			m.logAuthFailure(r, "invalid token", err)
			m.writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		for pattern, roles := range m.config.RequiredRoles {
			if pathMatches(path, pattern) && len(roles) > 0 && !hasRequiredRoles(claims.Roles, roles) {
				m.logAuthFailure(r, "insufficient permissions", nil)
				m.writeAuthError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
		}

		ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// requiresAuth checks if a path requires authentication
func (m *JWTMiddleware) requiresAuth(path string) bool {
	for _, protected := range m.config.ProtectedPaths {
		if pathMatches(path, protected) {
			return true
		}
	}
	return false
}

func pathMatches(path, pattern string) bool {
	switch {
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(path, strings.TrimPrefix(pattern, "*"))
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return path == pattern
}

// extractToken extracts the JWT token from the Authorization header
func (m *JWTMiddleware) extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get(constants.HeaderAuthorization)
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is missing")
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, constants.AuthSchemeBearer) {
		return "", fmt.Errorf("authorization header must be in '%s <token>' format", constants.AuthSchemeBearer)
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("token is empty")
	}

	return token, nil
}

// validateToken validates the JWT token and returns the claims
func (m *JWTMiddleware) validateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithLeeway(constants.JWTClockSkew))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// hasRequiredRoles checks if user has any of the required roles
func hasRequiredRoles(userRoles, requiredRoles []string) bool {
	roleSet := make(map[string]bool, len(userRoles))
	for _, role := range userRoles {
		roleSet[role] = true
	}

	for _, required := range requiredRoles {
		if roleSet[required] {
			return true
		}
	}
	return false
}

// logAuthFailure logs authentication failures for security monitoring
func (m *JWTMiddleware) logAuthFailure(r *http.Request, reason string, err error) {
	logger := m.logger.WithContext(r.Context()).WithFields(map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	if err != nil {
		logger.Warnf("auth failure: %s: %v", reason, err)
	} else {
		logger.Warnf("auth failure: %s", reason)
	}
}

// writeAuthError writes an authentication error response
func (m *JWTMiddleware) writeAuthError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set(constants.HeaderContentType, constants.MIMEApplicationJSON)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"error": message,
		"code":  statusCode,
	})
}

// GenerateToken generates a new JWT token with the given claims
func GenerateToken(secret string, userID string, roles []string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-constants.JWTClockSkew)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// GetUserClaims extracts user claims from request context
func GetUserClaims(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*UserClaims)
	return claims, ok
}
