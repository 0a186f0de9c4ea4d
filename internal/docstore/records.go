// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package docstore

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/projecteax/concepto-sub007/internal/models"
)

// showGrantKey and episodeGrantKey place the grantee first so that all
// grants of one identity are a single prefix scan -- the two bulk
// queries the access resolver issues on identity change.
func showGrantKey(granteeID, showID string) string {
	return showGrantKeyPrefix + granteeID + ":" + showID
}

func episodeGrantKey(granteeID, episodeID string) string {
	return episodeGrantKeyPrefix + granteeID + ":" + episodeID
}

// PutShow persists a show.
func (s *Store) PutShow(ctx context.Context, show *models.Show) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.put(showKeyPrefix+show.ID, show)
}

// GetShow loads a show by ID.
func (s *Store) GetShow(ctx context.Context, showID string) (*models.Show, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var show models.Show
	if err := s.get(showKeyPrefix+showID, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// ListShows returns every stored show. Visibility filtering is the
// access resolver's job, not the store's.
func (s *Store) ListShows(ctx context.Context) ([]models.Show, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var shows []models.Show
	err := s.scan(showKeyPrefix, func(val []byte) error {
		var show models.Show
		if err := json.Unmarshal(val, &show); err != nil {
			return err
		}
		shows = append(shows, show)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	return shows, nil
}

// PutGrant persists a grant record. Grant validity (grantable role,
// admin actor) is enforced by the caller.
func (s *Store) PutGrant(ctx context.Context, grant *models.Grant) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if grant.IsEpisodeLevel() {
		return s.put(episodeGrantKey(grant.GranteeID, grant.EpisodeID), grant)
	}
	return s.put(showGrantKey(grant.GranteeID, grant.ShowID), grant)
}

// DeleteGrant removes a grant record. Idempotent.
func (s *Store) DeleteGrant(ctx context.Context, grant *models.Grant) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if grant.IsEpisodeLevel() {
		return s.delete(episodeGrantKey(grant.GranteeID, grant.EpisodeID))
	}
	return s.delete(showGrantKey(grant.GranteeID, grant.ShowID))
}

// ShowGrantsFor returns all show-level grants addressed to granteeID.
func (s *Store) ShowGrantsFor(ctx context.Context, granteeID string) ([]models.Grant, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.scanGrants(showGrantKeyPrefix + granteeID + ":")
}

// EpisodeGrantsFor returns all episode-level grants addressed to granteeID.
func (s *Store) EpisodeGrantsFor(ctx context.Context, granteeID string) ([]models.Grant, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.scanGrants(episodeGrantKeyPrefix + granteeID + ":")
}

func (s *Store) scanGrants(prefix string) ([]models.Grant, error) {
	var grants []models.Grant
	err := s.scan(prefix, func(val []byte) error {
		var g models.Grant
		if err := json.Unmarshal(val, &g); err != nil {
			return err
		}
		grants = append(grants, g)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan grants %s: %w", prefix, err)
	}
	return grants, nil
}

// FindEpisodeByShot returns the episode containing shotID. External
// clients address shots by ID alone, so the lookup scans episodes;
// ErrNotFound when no episode holds the shot.
func (s *Store) FindEpisodeByShot(ctx context.Context, shotID string) (*models.Episode, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var found *models.Episode
	err := s.scan(episodeKeyPrefix, func(val []byte) error {
		if found != nil {
			return nil
		}
		var ep models.Episode
		if err := json.Unmarshal(val, &ep); err != nil {
			return err
		}
		if _, _, _, ok := ep.FindShot(shotID); ok {
			found = &ep
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find episode by shot %s: %w", shotID, err)
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// PutAPIKey persists an API key record.
func (s *Store) PutAPIKey(ctx context.Context, key *models.APIKey) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.put(apiKeyKeyPrefix+key.ID, key)
}

// GetAPIKey loads an API key record by key ID.
func (s *Store) GetAPIKey(ctx context.Context, keyID string) (*models.APIKey, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var key models.APIKey
	if err := s.get(apiKeyKeyPrefix+keyID, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// PutIdentity persists an identity record.
func (s *Store) PutIdentity(ctx context.Context, identity *models.Identity) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.put(identityKeyPrefix+identity.ID, identity)
}

// GetIdentity loads an identity by ID.
func (s *Store) GetIdentity(ctx context.Context, identityID string) (*models.Identity, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var identity models.Identity
	if err := s.get(identityKeyPrefix+identityID, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}
