// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/projecteax/concepto-sub007/internal/models"
)

func testMiddleware(t *testing.T) (*Middleware, *KeyManager, *JWTManager) {
	t.Helper()
	jwtManager, err := NewJWTManager(testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	keyManager, _ := testKeyManager(t)
	logger := keyManager.logger
	return NewMiddleware(jwtManager, keyManager, &logger), keyManager, jwtManager
}

// identityEcho records the identity the middleware resolved.
func identityEcho(got **models.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			*got = identity
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateNoCredentials(t *testing.T) {
	m, _, _ := testMiddleware(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/external/episodes/e1", nil)
	m.Authenticate(identityEcho(new(*models.Identity))).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAuthenticateAPIKey(t *testing.T) {
	m, keys, _ := testMiddleware(t)
	_, plaintext, err := keys.Issue(context.Background(), "u-prod-1", "test")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got *models.Identity
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/external/episodes/e1", nil)
	req.Header.Set(APIKeyHeader, plaintext)
	m.Authenticate(identityEcho(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.ID != "u-prod-1" {
		t.Errorf("resolved identity = %+v", got)
	}
}

func TestAuthenticateInvalidAPIKey(t *testing.T) {
	m, _, _ := testMiddleware(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "cncp_bogus_key")
	m.Authenticate(identityEcho(new(*models.Identity))).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticateBearer(t *testing.T) {
	m, _, jwtManager := testMiddleware(t)
	token, err := jwtManager.GenerateToken(&models.Identity{
		ID:          "u-admin",
		DisplayName: "Alex Admin",
		Role:        models.GlobalRoleAdmin,
	})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var got *models.Identity
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	m.Authenticate(identityEcho(&got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.ID != "u-admin" || !got.IsAdmin() {
		t.Errorf("resolved identity = %+v", got)
	}
}

func TestAuthenticateMalformedBearer(t *testing.T) {
	m, _, _ := testMiddleware(t)

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer", "Bearer not.a.jwt"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		m.Authenticate(identityEcho(new(*models.Identity))).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		identity *models.Identity
		want     int
	}{
		{"admin passes", &models.Identity{ID: "u-a", Role: models.GlobalRoleAdmin}, http.StatusOK},
		{"user denied", &models.Identity{ID: "u-b", Role: models.GlobalRoleUser}, http.StatusForbidden},
		{"unauthenticated", nil, http.StatusUnauthorized},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/admin/grants", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.identity))
			}
			RequireAdmin(next).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
