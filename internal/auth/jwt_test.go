// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package auth

import (
	"testing"
	"time"

	"github.com/projecteax/concepto-sub007/internal/models"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func testIdentity() *models.Identity {
	return &models.Identity{
		ID:          "u-prod-1",
		DisplayName: "Pat Producer",
		Role:        models.GlobalRoleUser,
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewJWTManager(testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "u-prod-1" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.DisplayName != "Pat Producer" {
		t.Errorf("DisplayName = %q", claims.DisplayName)
	}
	if claims.Role != models.GlobalRoleUser {
		t.Errorf("Role = %q", claims.Role)
	}

	identity := claims.Identity()
	if identity.ID != "u-prod-1" || identity.Role != models.GlobalRoleUser {
		t.Errorf("Identity() = %+v", identity)
	}
}

func TestJWTExpiredTokenRejected(t *testing.T) {
	m, err := NewJWTManager(testJWTSecret, -time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	// Negative timeout falls back to the default, so build an expired
	// manager explicitly.
	m.timeout = -time.Hour

	token, err := m.GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestJWTWrongSecretRejected(t *testing.T) {
	m1, _ := NewJWTManager(testJWTSecret, time.Hour)
	m2, _ := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour)

	token, err := m1.GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m2.ValidateToken(token); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestJWTGarbageRejected(t *testing.T) {
	m, _ := NewJWTManager(testJWTSecret, time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.ValidateToken(tok); err == nil {
			t.Errorf("ValidateToken(%q) accepted garbage", tok)
		}
	}
}

func TestNewJWTManagerEmptySecret(t *testing.T) {
	if _, err := NewJWTManager("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}
