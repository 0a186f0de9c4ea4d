// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package models

import "time"

// GlobalRole is the identity-wide role assigned at first authentication.
// Unlike Role it is not scoped to a show or episode.
type GlobalRole string

const (
	// GlobalRoleUser is the default global role.
	GlobalRoleUser GlobalRole = "user"

	// GlobalRoleAdmin marks an administrator. Admins resolve to RoleAdmin
	// for every show and episode and are the only identities allowed to
	// manage grants or promote other identities.
	GlobalRoleAdmin GlobalRole = "admin"
)

// Identity is an authenticated user of the system.
type Identity struct {
	// ID is the stable identifier assigned by the identity provider.
	ID string `json:"id"`

	// DisplayName is the human-readable name shown in the UI.
	DisplayName string `json:"display_name"`

	// Role is the global role. Promotable by an admin only.
	Role GlobalRole `json:"role"`

	// CreatedAt is when the identity was first seen.
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the identity holds the global admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == GlobalRoleAdmin
}
