// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Role is an ordered permission level. Higher values strictly include the
// capabilities of lower ones, so checks are plain comparisons:
//
//	if role >= models.RoleEditor { ... }
//
// RoleOwner and RoleAdmin are never stored in grant records; they are
// derived from ownership and from the identity's global role.
type Role int8

const (
	// RoleNone grants no access at all.
	RoleNone Role = iota

	// RoleViewer may observe a show or episode.
	RoleViewer

	// RoleCommenter may observe and attach comments.
	RoleCommenter

	// RoleEditor may mutate episode content.
	RoleEditor

	// RoleOwner is derived from show or episode ownership.
	RoleOwner

	// RoleAdmin is derived from the identity's global admin role and
	// supersedes everything else.
	RoleAdmin
)

// roleNames maps roles to their wire representation.
var roleNames = map[Role]string{
	RoleNone:      "none",
	RoleViewer:    "viewer",
	RoleCommenter: "commenter",
	RoleEditor:    "editor",
	RoleOwner:     "owner",
	RoleAdmin:     "admin",
}

// GrantableRoles lists the roles that may appear in a stored grant.
var GrantableRoles = []Role{RoleViewer, RoleCommenter, RoleEditor}

// String returns the wire name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int8(r))
}

// ParseRole converts a wire name into a Role. Unknown names resolve to
// RoleNone rather than an error: a grant record with a name this binary
// does not understand must fail closed.
func ParseRole(name string) Role {
	for role, n := range roleNames {
		if n == name {
			return role
		}
	}
	return RoleNone
}

// IsGrantable reports whether the role may be stored in a grant record.
func (r Role) IsGrantable() bool {
	return r >= RoleViewer && r <= RoleEditor
}

// CanView reports whether the role permits observing content.
func (r Role) CanView() bool {
	return r > RoleNone
}

// CanComment reports whether the role permits commenting.
func (r Role) CanComment() bool {
	return r >= RoleCommenter
}

// CanEdit reports whether the role permits mutating content.
func (r Role) CanEdit() bool {
	return r >= RoleEditor
}

// MarshalJSON encodes the role as its wire name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role from its wire name. Unknown names decode
// to RoleNone (fail closed).
func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("unmarshal role: %w", err)
	}
	*r = ParseRole(name)
	return nil
}
