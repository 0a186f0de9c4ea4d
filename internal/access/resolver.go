// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package access

import (
	"context"
	"sync"

	"github.com/projecteax/concepto-sub007/internal/logging"
	"github.com/projecteax/concepto-sub007/internal/models"
)

// GrantSource loads stored grant records. Implemented by docstore.Store.
type GrantSource interface {
	// ShowGrantsFor returns all show-level grants addressed to granteeID.
	ShowGrantsFor(ctx context.Context, granteeID string) ([]models.Grant, error)

	// EpisodeGrantsFor returns all episode-level grants addressed to granteeID.
	EpisodeGrantsFor(ctx context.Context, granteeID string) ([]models.Grant, error)
}

// Resolver caches the grants of one identity session and answers role and
// visibility queries against them.
//
// The cache is read-mostly: a grant change made by an admin in another
// session becomes visible here only on the next Reload. That staleness
// window is accepted by design; grants are not pushed live.
type Resolver struct {
	identity *models.Identity
	source   GrantSource

	mu            sync.RWMutex
	showGrants    []models.Grant
	episodeGrants []models.Grant
}

// NewResolver creates a resolver for identity and performs the initial
// grant load. A load failure degrades to empty grant sets -- access
// beyond ownership fails closed, never open -- and is logged, not
// returned: a resolver is always usable.
func NewResolver(ctx context.Context, identity *models.Identity, source GrantSource) *Resolver {
	r := &Resolver{identity: identity, source: source}
	r.Reload(ctx)
	return r
}

// Reload re-runs the two bulk grant queries. On failure the previous
// grants are discarded and the resolver holds empty sets.
func (r *Resolver) Reload(ctx context.Context) {
	var showGrants, episodeGrants []models.Grant

	if r.identity != nil && r.source != nil {
		var err error
		showGrants, err = r.source.ShowGrantsFor(ctx, r.identity.ID)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("identity_id", r.identity.ID).
				Msg("show grant load failed, failing closed")
			showGrants = nil
		}
		episodeGrants, err = r.source.EpisodeGrantsFor(ctx, r.identity.ID)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("identity_id", r.identity.ID).
				Msg("episode grant load failed, failing closed")
			episodeGrants = nil
		}
	}

	r.mu.Lock()
	r.showGrants = showGrants
	r.episodeGrants = episodeGrants
	r.mu.Unlock()
}

// Identity returns the identity this resolver was built for.
func (r *Resolver) Identity() *models.Identity {
	return r.identity
}

// RoleForShow returns the effective role for show.
func (r *Resolver) RoleForShow(show *models.Show) models.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ResolveShowRole(r.identity, show, r.showGrants)
}

// RoleForEpisode returns the effective role for episode within show.
func (r *Resolver) RoleForEpisode(episode *models.Episode, show *models.Show) models.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ResolveEpisodeRole(r.identity, episode, show, r.showGrants, r.episodeGrants)
}

// VisibleShows filters allShows down to those the identity may see:
// admins see everything; otherwise owned shows, shows with a show-level
// grant, and shows containing at least one episode-level grant for this
// identity.
func (r *Resolver) VisibleShows(allShows []models.Show) []models.Show {
	if r.identity == nil {
		return nil
	}
	if r.identity.IsAdmin() {
		return allShows
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	visible := make([]models.Show, 0, len(allShows))
	for i := range allShows {
		show := &allShows[i]
		if show.OwnerID == r.identity.ID {
			visible = append(visible, *show)
			continue
		}
		if ResolveShowRole(r.identity, show, r.showGrants) != models.RoleNone {
			visible = append(visible, *show)
			continue
		}
		if r.hasEpisodeGrantInLocked(show.ID) {
			visible = append(visible, *show)
		}
	}
	return visible
}

// VisibleEpisodes filters allEpisodes of show down to those the identity
// may view.
func (r *Resolver) VisibleEpisodes(show *models.Show, allEpisodes []models.Episode) []models.Episode {
	if r.identity == nil {
		return nil
	}
	if r.identity.IsAdmin() {
		return allEpisodes
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	visible := make([]models.Episode, 0, len(allEpisodes))
	for i := range allEpisodes {
		ep := &allEpisodes[i]
		role := ResolveEpisodeRole(r.identity, ep, show, r.showGrants, r.episodeGrants)
		if role.CanView() {
			visible = append(visible, *ep)
		}
	}
	return visible
}

// HasOnlyEpisodeLevelAccess reports whether the identity can reach show
// solely through episode-level grants.
func (r *Resolver) HasOnlyEpisodeLevelAccess(show *models.Show) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return HasOnlyEpisodeLevelAccess(r.identity, show, r.showGrants, r.episodeGrants)
}

// hasEpisodeGrantInLocked reports whether any episode-level grant targets
// an episode of showID. Caller must hold r.mu.
func (r *Resolver) hasEpisodeGrantInLocked(showID string) bool {
	for i := range r.episodeGrants {
		g := &r.episodeGrants[i]
		if g.GranteeID == r.identity.ID && g.ShowID == showID && g.IsEpisodeLevel() {
			return true
		}
	}
	return false
}
