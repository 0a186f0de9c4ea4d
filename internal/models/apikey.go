// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package models

import "time"

// APIKey is a stored API key record. The plaintext key is shown exactly
// once at issue time; only the bcrypt hash is persisted.
type APIKey struct {
	// ID is the key identifier, embedded in the plaintext key so that
	// validation is a point lookup rather than a scan.
	ID string `json:"id"`

	// IdentityID is the identity the key authenticates as.
	IdentityID string `json:"identity_id"`

	// Name is a human-readable label ("render farm", "CI").
	Name string `json:"name"`

	// Hash is the bcrypt hash of the SHA-256 of the plaintext key.
	Hash string `json:"hash"`

	CreatedAt time.Time `json:"created_at"`

	// RevokedAt is set when the key is revoked. Revoked keys fail
	// validation but the record is kept for audit.
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}
