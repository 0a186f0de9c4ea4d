// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package models

import "time"

// Grant scopes a role to an identity at show or episode granularity.
//
// A show-level grant (EpisodeID empty) applies to every episode in the
// show. An episode-level grant overrides a show-level grant for that
// episode only -- including downgrading a show editor to an episode
// viewer -- and implies no visibility of sibling episodes.
//
// Grants are created and removed by admins only. Owner and admin are
// never stored as grants; they are derived.
type Grant struct {
	// GranteeID is the identity receiving the role.
	GranteeID string `json:"grantee_id"`

	// ShowID is the show the grant is scoped to.
	ShowID string `json:"show_id"`

	// EpisodeID narrows the grant to a single episode when non-empty.
	EpisodeID string `json:"episode_id,omitempty"`

	// Role is the granted role; must satisfy Role.IsGrantable.
	Role Role `json:"role"`

	// GrantedBy is the admin identity that created the grant.
	GrantedBy string `json:"granted_by,omitempty"`

	// GrantedAt is when the grant was created.
	GrantedAt time.Time `json:"granted_at"`
}

// IsEpisodeLevel reports whether the grant is scoped to a single episode.
func (g *Grant) IsEpisodeLevel() bool {
	return g.EpisodeID != ""
}
