// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package access

import (
	"github.com/projecteax/concepto-sub007/internal/models"
)

// ResolveShowRole computes the effective role of identity for show given
// the show-level grants addressed to that identity. Pure function, no I/O.
func ResolveShowRole(identity *models.Identity, show *models.Show, showGrants []models.Grant) models.Role {
	if identity == nil || show == nil {
		return models.RoleNone
	}
	if identity.IsAdmin() {
		return models.RoleAdmin
	}
	if show.OwnerID == identity.ID {
		return models.RoleOwner
	}

	// Highest show-level grant wins. Episode-level grants never widen
	// show-level access.
	best := models.RoleNone
	for i := range showGrants {
		g := &showGrants[i]
		if g.IsEpisodeLevel() || g.GranteeID != identity.ID || g.ShowID != show.ID {
			continue
		}
		if g.Role > best {
			best = g.Role
		}
	}
	return best
}

// ResolveEpisodeRole computes the effective role of identity for episode.
//
// An episode-level grant overrides the show-level result for that episode
// only. Override means the explicit grant is taken verbatim, even when it
// is weaker than the show-level grant: admins scope collaborators down to
// a single episode this way.
func ResolveEpisodeRole(identity *models.Identity, episode *models.Episode, show *models.Show, showGrants, episodeGrants []models.Grant) models.Role {
	if identity == nil || episode == nil {
		return models.RoleNone
	}
	if identity.IsAdmin() {
		return models.RoleAdmin
	}
	// Ownership is inherited from the show.
	if show != nil && show.OwnerID == identity.ID {
		return models.RoleOwner
	}

	for i := range episodeGrants {
		g := &episodeGrants[i]
		if g.GranteeID == identity.ID && g.EpisodeID == episode.ID {
			return g.Role
		}
	}

	return ResolveShowRole(identity, show, showGrants)
}

// HasOnlyEpisodeLevelAccess reports whether identity has no show-level
// role for show but holds at least one episode-level grant inside it.
// The presentation layer uses this to restrict navigation to the granted
// episodes instead of listing the whole show.
func HasOnlyEpisodeLevelAccess(identity *models.Identity, show *models.Show, showGrants, episodeGrants []models.Grant) bool {
	// Same nil tolerance as the resolve functions above.
	if identity == nil || show == nil {
		return false
	}
	if ResolveShowRole(identity, show, showGrants) != models.RoleNone {
		return false
	}
	for i := range episodeGrants {
		g := &episodeGrants[i]
		if g.GranteeID == identity.ID && g.ShowID == show.ID && g.IsEpisodeLevel() {
			return true
		}
	}
	return false
}
