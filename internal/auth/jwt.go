// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/projecteax/concepto-sub007/internal/models"
)

// Claims are the JWT claims carried by a Concepto session token.
type Claims struct {
	DisplayName string            `json:"display_name"`
	Role        models.GlobalRole `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates session tokens with HMAC-SHA256.
type JWTManager struct {
	secret  []byte
	timeout time.Duration
}

// NewJWTManager creates a JWT manager. The secret must be non-empty;
// config validation enforces the minimum length before we get here.
func NewJWTManager(secret string, timeout time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), timeout: timeout}, nil
}

// GenerateToken issues a signed session token for an identity. The
// identity ID travels in the subject claim.
func (m *JWTManager) GenerateToken(identity *models.Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		DisplayName: identity.DisplayName,
		Role:        identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token. Tokens signed with
// anything but HMAC are rejected to prevent algorithm confusion.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Identity reconstructs the identity the claims describe.
func (c *Claims) Identity() *models.Identity {
	return &models.Identity{
		ID:          c.Subject,
		DisplayName: c.DisplayName,
		Role:        c.Role,
	}
}
