// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package access

import (
	"context"
	"errors"
	"testing"

	"github.com/projecteax/concepto-sub007/internal/models"
)

// stubGrantSource returns fixed grants, or an error when failing is set.
type stubGrantSource struct {
	showGrants    []models.Grant
	episodeGrants []models.Grant
	failing       bool
	loads         int
}

func (s *stubGrantSource) ShowGrantsFor(_ context.Context, _ string) ([]models.Grant, error) {
	s.loads++
	if s.failing {
		return nil, errors.New("store unavailable")
	}
	return s.showGrants, nil
}

func (s *stubGrantSource) EpisodeGrantsFor(_ context.Context, _ string) ([]models.Grant, error) {
	if s.failing {
		return nil, errors.New("store unavailable")
	}
	return s.episodeGrants, nil
}

func TestResolver_VisibleShows(t *testing.T) {
	shows := []models.Show{
		{ID: "show-owned", OwnerID: "u-viktor"},
		{ID: "show-c", OwnerID: "u-owner"},
		{ID: "show-episode-only", OwnerID: "u-owner"},
		{ID: "show-hidden", OwnerID: "u-owner"},
	}
	source := &stubGrantSource{
		showGrants: []models.Grant{
			{GranteeID: "u-viktor", ShowID: "show-c", Role: models.RoleViewer},
		},
		episodeGrants: []models.Grant{
			{GranteeID: "u-viktor", ShowID: "show-episode-only", EpisodeID: "ep-x", Role: models.RoleViewer},
		},
	}
	r := NewResolver(context.Background(), collV, source)

	visible := r.VisibleShows(shows)
	if len(visible) != 3 {
		t.Fatalf("VisibleShows returned %d shows, want 3", len(visible))
	}
	for _, s := range visible {
		if s.ID == "show-hidden" {
			t.Error("show-hidden must not be visible")
		}
	}

	if !r.HasOnlyEpisodeLevelAccess(&shows[2]) {
		t.Error("expected episode-only access to show-episode-only")
	}
	if r.HasOnlyEpisodeLevelAccess(&shows[1]) {
		t.Error("show-c has a show-level grant; not episode-only")
	}
}

func TestResolver_VisibleShows_Admin(t *testing.T) {
	shows := []models.Show{
		{ID: "a", OwnerID: "x"},
		{ID: "b", OwnerID: "y"},
	}
	r := NewResolver(context.Background(), admin, &stubGrantSource{})
	if got := r.VisibleShows(shows); len(got) != len(shows) {
		t.Errorf("admin sees %d shows, want %d", len(got), len(shows))
	}
}

func TestResolver_FailClosed(t *testing.T) {
	// Property: a grant load failure must degrade to ownership-only
	// visibility, never to full access.
	shows := []models.Show{
		{ID: "show-owned", OwnerID: "u-viktor"},
		{ID: "show-granted", OwnerID: "u-owner"},
	}
	source := &stubGrantSource{
		showGrants: []models.Grant{
			{GranteeID: "u-viktor", ShowID: "show-granted", Role: models.RoleEditor},
		},
		failing: true,
	}
	r := NewResolver(context.Background(), collV, source)

	visible := r.VisibleShows(shows)
	if len(visible) != 1 || visible[0].ID != "show-owned" {
		t.Fatalf("fail-closed VisibleShows = %v, want only show-owned", visible)
	}

	// Recovery: once the store is healthy a Reload restores the grants.
	source.failing = false
	r.Reload(context.Background())
	if got := r.VisibleShows(shows); len(got) != 2 {
		t.Errorf("after reload VisibleShows returned %d shows, want 2", len(got))
	}
}

func TestResolver_VisibleEpisodes(t *testing.T) {
	episodes := []models.Episode{
		{ID: "ep-d", ShowID: "show-c"},
		{ID: "ep-e", ShowID: "show-c"},
	}
	source := &stubGrantSource{
		episodeGrants: []models.Grant{
			{GranteeID: "u-viktor", ShowID: "show-c", EpisodeID: "ep-d", Role: models.RoleViewer},
		},
	}
	r := NewResolver(context.Background(), collV, source)

	visible := r.VisibleEpisodes(showC, episodes)
	if len(visible) != 1 || visible[0].ID != "ep-d" {
		t.Fatalf("VisibleEpisodes = %v, want only ep-d", visible)
	}

	// Admin sees every episode regardless of grants.
	ra := NewResolver(context.Background(), admin, &stubGrantSource{})
	if got := ra.VisibleEpisodes(showC, episodes); len(got) != 2 {
		t.Errorf("admin VisibleEpisodes returned %d, want 2", len(got))
	}
}

func TestResolver_RoleForEpisode(t *testing.T) {
	source := &stubGrantSource{
		showGrants: []models.Grant{
			{GranteeID: "u-viktor", ShowID: "show-c", Role: models.RoleEditor},
		},
		episodeGrants: []models.Grant{
			{GranteeID: "u-viktor", ShowID: "show-c", EpisodeID: "ep-d", Role: models.RoleViewer},
		},
	}
	r := NewResolver(context.Background(), collV, source)

	if got := r.RoleForShow(showC); got != models.RoleEditor {
		t.Errorf("RoleForShow = %v, want RoleEditor", got)
	}
	if got := r.RoleForEpisode(epD, showC); got != models.RoleViewer {
		t.Errorf("RoleForEpisode = %v, want RoleViewer (override)", got)
	}
	other := &models.Episode{ID: "ep-e", ShowID: "show-c"}
	if got := r.RoleForEpisode(other, showC); got != models.RoleEditor {
		t.Errorf("RoleForEpisode(sibling) = %v, want RoleEditor fallback", got)
	}
}
