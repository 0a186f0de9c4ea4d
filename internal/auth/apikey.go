// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/models"
)

const (
	// keyPrefix marks every Concepto API key.
	keyPrefix = "cncp_"

	// keySecretLength is the length of the random secret portion (bytes).
	keySecretLength = 32
)

// ErrInvalidKey is returned for any key that fails validation. The
// cause (malformed, unknown, revoked, bad secret) is logged but never
// surfaced to the caller.
var ErrInvalidKey = errors.New("auth: invalid API key")

// KeyStore is the persistence needed for API key management.
type KeyStore interface {
	PutAPIKey(ctx context.Context, key *models.APIKey) error
	GetAPIKey(ctx context.Context, keyID string) (*models.APIKey, error)
	GetIdentity(ctx context.Context, identityID string) (*models.Identity, error)
}

// KeyManager issues and validates API keys. Keys look like
// cncp_<base64url key ID>_<base64url secret>; only a bcrypt hash of the
// whole key is stored.
type KeyManager struct {
	store      KeyStore
	bcryptCost int
	logger     zerolog.Logger
}

// NewKeyManager creates an API key manager.
func NewKeyManager(store KeyStore, bcryptCost int, logger *zerolog.Logger) *KeyManager {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &KeyManager{
		store:      store,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("component", "key_manager").Logger(),
	}
}

// Issue creates a new API key for an identity. Returns the stored
// record and the plaintext key, which is shown only once.
func (m *KeyManager) Issue(ctx context.Context, identityID, name string) (*models.APIKey, string, error) {
	if _, err := m.store.GetIdentity(ctx, identityID); err != nil {
		return nil, "", fmt.Errorf("issue key for %s: %w", identityID, err)
	}

	keyID := uuid.New().String()

	secretBytes := make([]byte, keySecretLength)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, "", fmt.Errorf("failed to generate key secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	idEncoded := base64.RawURLEncoding.EncodeToString([]byte(keyID))
	plaintext := fmt.Sprintf("%s%s_%s", keyPrefix, idEncoded, secret)

	hash, err := hashKey(plaintext, m.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash key: %w", err)
	}

	record := &models.APIKey{
		ID:         keyID,
		IdentityID: identityID,
		Name:       name,
		Hash:       hash,
		CreatedAt:  time.Now(),
	}
	if err := m.store.PutAPIKey(ctx, record); err != nil {
		return nil, "", fmt.Errorf("failed to store key: %w", err)
	}

	m.logger.Info().
		Str("key_id", keyID).
		Str("identity_id", identityID).
		Str("name", name).
		Msg("API key issued")

	return record, plaintext, nil
}

// Validate checks a plaintext key and returns the identity it
// authenticates. The key ID embedded in the key makes this a point
// lookup followed by one bcrypt comparison.
func (m *KeyManager) Validate(ctx context.Context, plaintext string) (*models.Identity, error) {
	keyID, err := parseKeyID(plaintext)
	if err != nil {
		return nil, ErrInvalidKey
	}

	record, err := m.store.GetAPIKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("key lookup failed: %w", err)
	}
	if record.IsRevoked() {
		m.logger.Warn().Str("key_id", keyID).Msg("revoked API key presented")
		return nil, ErrInvalidKey
	}
	if !verifyKey(plaintext, record.Hash) {
		m.logger.Warn().Str("key_id", keyID).Msg("API key secret mismatch")
		return nil, ErrInvalidKey
	}

	identity, err := m.store.GetIdentity(ctx, record.IdentityID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			m.logger.Warn().
				Str("key_id", keyID).
				Str("identity_id", record.IdentityID).
				Msg("API key references missing identity")
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}
	return identity, nil
}

// Revoke marks a key record revoked. Idempotent.
func (m *KeyManager) Revoke(ctx context.Context, keyID string) error {
	record, err := m.store.GetAPIKey(ctx, keyID)
	if err != nil {
		return fmt.Errorf("revoke key %s: %w", keyID, err)
	}
	if record.IsRevoked() {
		return nil
	}
	now := time.Now()
	record.RevokedAt = &now
	if err := m.store.PutAPIKey(ctx, record); err != nil {
		return fmt.Errorf("revoke key %s: %w", keyID, err)
	}
	m.logger.Info().Str("key_id", keyID).Msg("API key revoked")
	return nil
}

// parseKeyID extracts the key ID from a plaintext key.
func parseKeyID(plaintext string) (string, error) {
	if !strings.HasPrefix(plaintext, keyPrefix) {
		return "", fmt.Errorf("invalid key format")
	}
	parts := strings.SplitN(strings.TrimPrefix(plaintext, keyPrefix), "_", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid key format")
	}
	idBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid key format")
	}
	return string(idBytes), nil
}

// hashKey bcrypts the SHA-256 of the plaintext. The SHA-256 step keeps
// the input inside bcrypt's 72-byte limit regardless of key length.
func hashKey(plaintext string, cost int) (string, error) {
	sha := sha256.Sum256([]byte(plaintext))
	hash, err := bcrypt.GenerateFromPassword(sha[:], cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt failed: %w", err)
	}
	return string(hash), nil
}

// verifyKey compares a plaintext key with a stored hash.
func verifyKey(plaintext, storedHash string) bool {
	sha := sha256.Sum256([]byte(plaintext))
	return bcrypt.CompareHashAndPassword([]byte(storedHash), sha[:]) == nil
}
