// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/projecteax/concepto-sub007/internal/models"
)

// collectSnapshots subscribes and forwards snapshots to a channel.
func collectSnapshots(t *testing.T, s *Store, episodeID string) (<-chan *models.Episode, func()) {
	t.Helper()
	snapshots := make(chan *models.Episode, 16)
	cancel, err := s.Subscribe(context.Background(), episodeID, func(ep *models.Episode) {
		snapshots <- ep
	}, nil)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	return snapshots, cancel
}

func waitSnapshot(t *testing.T, ch <-chan *models.Episode) *models.Episode {
	t.Helper()
	select {
	case ep := <-ch:
		return ep
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribe_InitialSnapshotThenCommits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateEpisode(ctx, testEpisode("ep-1")); err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}

	snapshots, cancel := collectSnapshots(t, s, "ep-1")
	defer cancel()

	initial := waitSnapshot(t, snapshots)
	if initial.ID != "ep-1" || initial.Title != "Pilot" {
		t.Errorf("initial snapshot = %+v", initial)
	}

	title := "Pilot v2"
	if err := s.Commit(ctx, "ep-1", Fields{Title: &title, LastEditedBy: "u-alex", LastEditedAt: ServerTimestamp}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	next := waitSnapshot(t, snapshots)
	if next.Title != "Pilot v2" {
		t.Errorf("pushed snapshot Title = %q, want Pilot v2", next.Title)
	}
	if next.LastEditedBy != "u-alex" {
		t.Errorf("pushed snapshot LastEditedBy = %q", next.LastEditedBy)
	}
	if !next.UpdatedAt.After(initial.UpdatedAt) {
		t.Error("UpdatedAt must be monotonically increasing across snapshots")
	}
}

func TestSubscribe_OwnCommitsAreDelivered(t *testing.T) {
	// The store does not distinguish self from other writers; echo
	// suppression belongs to the sync engine, not here.
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateEpisode(ctx, testEpisode("ep-1")); err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}

	snapshots, cancel := collectSnapshots(t, s, "ep-1")
	defer cancel()
	waitSnapshot(t, snapshots) // initial

	title := "self edit"
	if err := s.Commit(ctx, "ep-1", Fields{Title: &title}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := waitSnapshot(t, snapshots); got.Title != "self edit" {
		t.Errorf("own commit not delivered, got %+v", got)
	}
}

func TestSubscribe_CancelIsIdempotentAndStopsDelivery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateEpisode(ctx, testEpisode("ep-1")); err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}

	snapshots, cancel := collectSnapshots(t, s, "ep-1")
	waitSnapshot(t, snapshots)

	cancel()
	cancel() // must be safe to call twice

	// Give the subscription goroutine a moment to wind down, then
	// commit; nothing further may arrive.
	time.Sleep(50 * time.Millisecond)
	title := "after cancel"
	if err := s.Commit(ctx, "ep-1", Fields{Title: &title}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	select {
	case ep := <-snapshots:
		t.Errorf("snapshot delivered after cancel: %+v", ep)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribe_MissingEpisode(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Subscribe(context.Background(), "missing", func(*models.Episode) {}, nil)
	if err == nil {
		t.Fatal("Subscribe to a missing episode must fail")
	}
}

func TestSubscribe_TwoSubscribersConverge(t *testing.T) {
	// Two sessions committing within a tight window: the store's
	// per-episode linearization decides the winner, and both
	// subscribers end on the same final snapshot.
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateEpisode(ctx, testEpisode("ep-1")); err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}

	snapsA, cancelA := collectSnapshots(t, s, "ep-1")
	defer cancelA()
	snapsB, cancelB := collectSnapshots(t, s, "ep-1")
	defer cancelB()
	waitSnapshot(t, snapsA)
	waitSnapshot(t, snapsB)

	titleA := "from A"
	titleB := "from B"
	done := make(chan error, 2)
	go func() { done <- s.Commit(ctx, "ep-1", Fields{Title: &titleA, LastEditedBy: "u-a"}) }()
	go func() { done <- s.Commit(ctx, "ep-1", Fields{Title: &titleB, LastEditedBy: "u-b"}) }()
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Commit: %v", err)
		}
	}

	finalA := waitSnapshot(t, snapsA)
	finalB := waitSnapshot(t, snapsB)
	// Drain the intermediate snapshot if both commits were observed.
	select {
	case finalA = <-snapsA:
	case <-time.After(200 * time.Millisecond):
	}
	select {
	case finalB = <-snapsB:
	case <-time.After(200 * time.Millisecond):
	}

	stored, err := s.GetEpisode(ctx, "ep-1")
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if finalA.Title != stored.Title || finalB.Title != stored.Title {
		t.Errorf("subscribers diverged: A=%q B=%q stored=%q", finalA.Title, finalB.Title, stored.Title)
	}
	if !finalA.UpdatedAt.Equal(finalB.UpdatedAt) {
		t.Errorf("subscribers saw different final UpdatedAt: %v vs %v", finalA.UpdatedAt, finalB.UpdatedAt)
	}
}
