// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/projecteax/concepto-sub007/internal/metrics"
	"github.com/projecteax/concepto-sub007/internal/models"
)

type contextKey string

// identityContextKey carries the authenticated identity through the
// request context.
const identityContextKey contextKey = "identity"

// APIKeyHeader is the header carrying an API key.
const APIKeyHeader = "X-API-Key"

// Middleware authenticates requests by API key or bearer JWT and
// places the resolved identity in the request context.
type Middleware struct {
	jwtManager *JWTManager
	keyManager *KeyManager
	logger     zerolog.Logger
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(jwtManager *JWTManager, keyManager *KeyManager, logger *zerolog.Logger) *Middleware {
	return &Middleware{
		jwtManager: jwtManager,
		keyManager: keyManager,
		logger:     logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate resolves the caller's identity. Requests with no
// credentials, or credentials that fail validation, get 401. An API
// key takes precedence over a bearer token when both are present.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(APIKeyHeader); key != "" {
			m.handleAPIKey(w, r, next, key)
			return
		}
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			m.handleBearer(w, r, next, authHeader)
			return
		}
		writeAuthError(w, http.StatusUnauthorized, "authentication required")
	})
}

func (m *Middleware) handleAPIKey(w http.ResponseWriter, r *http.Request, next http.Handler, key string) {
	identity, err := m.keyManager.Validate(r.Context(), key)
	metrics.RecordAuthValidation("api_key", err == nil)
	if err != nil {
		m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("API key validation failed")
		writeAuthError(w, http.StatusUnauthorized, "invalid API key")
		return
	}
	next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
}

func (m *Middleware) handleBearer(w http.ResponseWriter, r *http.Request, next http.Handler, authHeader string) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		metrics.RecordAuthValidation("jwt", false)
		writeAuthError(w, http.StatusUnauthorized, "malformed authorization header")
		return
	}

	claims, err := m.jwtManager.ValidateToken(token)
	metrics.RecordAuthValidation("jwt", err == nil)
	if err != nil {
		m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("JWT validation failed")
		writeAuthError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
}

// RequireAdmin rejects requests whose identity does not hold the
// global admin role. Must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !identity.IsAdmin() {
			metrics.APIPermissionDenials.Inc()
			writeAuthError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext extracts the authenticated identity.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*models.Identity)
	return identity, ok
}

// writeAuthError emits the standard error envelope. Kept local so the
// auth package does not depend on the api package.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	code := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		code = "FORBIDDEN"
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
