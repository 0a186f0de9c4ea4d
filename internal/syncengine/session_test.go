// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package syncengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/models"
)

// fakeStore implements Store with scriptable behavior: snapshots are
// pushed by the test, commits are recorded.
type fakeStore struct {
	mu          sync.Mutex
	onSnapshot  docstore.SnapshotFunc
	commits     []docstore.Fields
	commitErr   error
	commitDelay time.Duration
	initial     *models.Episode
}

func (f *fakeStore) Subscribe(_ context.Context, _ string, onSnapshot docstore.SnapshotFunc, _ docstore.ErrorFunc) (func(), error) {
	f.mu.Lock()
	f.onSnapshot = onSnapshot
	initial := f.initial
	f.mu.Unlock()
	if initial != nil {
		onSnapshot(initial)
	}
	return func() {}, nil
}

func (f *fakeStore) Commit(_ context.Context, _ string, fields docstore.Fields) error {
	if f.commitDelay > 0 {
		time.Sleep(f.commitDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, fields)
	return nil
}

func (f *fakeStore) push(ep *models.Episode) {
	f.mu.Lock()
	fn := f.onSnapshot
	f.mu.Unlock()
	fn(ep)
}

func (f *fakeStore) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commits)
}

func (f *fakeStore) lastCommit(t *testing.T) docstore.Fields {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commits) == 0 {
		t.Fatal("no commits recorded")
	}
	return f.commits[len(f.commits)-1]
}

// waitCommits polls until the store has n commits or the deadline hits.
func (f *fakeStore) waitCommits(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.commitCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d commits, have %d", n, f.commitCount())
}

func testConfig() Config {
	return Config{
		DebounceWindow:     40 * time.Millisecond,
		EchoSuppressWindow: 300 * time.Millisecond,
		ReadinessTimeout:   100 * time.Millisecond,
		OwnWriteMinHold:    200 * time.Millisecond,
		OwnWriteMaxHold:    400 * time.Millisecond,
	}
}

func baselineEpisode() *models.Episode {
	return &models.Episode{
		ID:        "ep-1",
		ShowID:    "show-1",
		Title:     "Pilot",
		UpdatedAt: time.Now(),
	}
}

type sessionHarness struct {
	store   *fakeStore
	session *Session
	changes chan *models.Episode
	errs    chan error
}

func newHarness(t *testing.T, store *fakeStore, cfg Config) *sessionHarness {
	t.Helper()
	h := &sessionHarness{
		store:   store,
		changes: make(chan *models.Episode, 16),
		errs:    make(chan error, 16),
	}
	engine := New(store, &models.Identity{ID: "u-self", Role: models.GlobalRoleUser}, cfg)
	session, err := engine.OpenSession(context.Background(), "ep-1",
		func(ep *models.Episode) { h.changes <- ep },
		func(err error) { h.errs <- err },
	)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	h.session = session
	t.Cleanup(session.Close)
	return h
}

func (h *sessionHarness) waitChange(t *testing.T) *models.Episode {
	t.Helper()
	select {
	case ep := <-h.changes:
		return ep
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a delivered change")
		return nil
	}
}

func (h *sessionHarness) expectNoChange(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case ep := <-h.changes:
		t.Fatalf("unexpected change delivered: %+v", ep)
	case <-time.After(within):
	}
}

func title(s string) *string { return &s }

func TestSession_BaselineSnapshotDelivered(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, testConfig())

	if got := h.waitChange(t); got.Title != "Pilot" {
		t.Errorf("baseline Title = %q, want Pilot", got.Title)
	}
}

func TestSession_RapidWritesCoalesceIntoOneCommit(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)

	for _, v := range []string{"a", "b", "c", "d", "final"} {
		if err := h.session.ScheduleWrite(docstore.Fields{Title: title(v)}); err != nil {
			t.Fatalf("ScheduleWrite: %v", err)
		}
	}

	store.waitCommits(t, 1)
	// Let a second debounce window pass; no further commit may appear.
	time.Sleep(100 * time.Millisecond)
	if n := store.commitCount(); n != 1 {
		t.Fatalf("commit count = %d, want 1", n)
	}
	if got := store.lastCommit(t); got.Title == nil || *got.Title != "final" {
		t.Errorf("committed Title = %v, want the last scheduled payload", got.Title)
	}
}

func TestSession_SupersededImmediateWritesAllAnswered(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode(), commitDelay: 150 * time.Millisecond}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)

	if err := h.session.ScheduleWrite(docstore.Fields{Title: title("first")}); err != nil {
		t.Fatalf("ScheduleWrite: %v", err)
	}
	// Let the debounce expire so a slow commit is in flight when the
	// immediate writes arrive.
	time.Sleep(60 * time.Millisecond)

	// Two immediate writes race each other behind the in-flight commit:
	// one supersedes the other's payload, but both callers must get an
	// answer when the coalesced commit lands.
	results := make(chan error, 2)
	for _, v := range []string{"second", "third"} {
		go func(v string) {
			results <- h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title(v)})
		}(v)
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			if err != nil {
				t.Errorf("immediate write: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("a superseded immediate write never got an answer")
		}
	}

	store.waitCommits(t, 2)
	got := store.lastCommit(t)
	if got.Title == nil || (*got.Title != "second" && *got.Title != "third") {
		t.Errorf("committed Title = %v, want one of the immediate payloads", got.Title)
	}
}

func TestSession_NoOpWriteIsDropped(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)

	fields := docstore.Fields{Title: title("same")}
	if err := h.session.WriteImmediately(context.Background(), fields); err != nil {
		t.Fatalf("WriteImmediately: %v", err)
	}
	store.waitCommits(t, 1)

	// Fingerprint-equal repeat: must not produce a second commit.
	if err := h.session.WriteImmediately(context.Background(), fields); err != nil {
		t.Fatalf("WriteImmediately repeat: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := store.commitCount(); n != 1 {
		t.Errorf("commit count = %d, want 1 after no-op repeat", n)
	}
}

func TestSession_OwnEchoSuppressed(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)

	if err := h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title("mine")}); err != nil {
		t.Fatalf("WriteImmediately: %v", err)
	}

	// The store echoes our own commit back, attributed to us.
	echo := baselineEpisode()
	echo.Title = "mine"
	echo.LastEditedBy = "u-self"
	store.push(echo)

	h.expectNoChange(t, 150*time.Millisecond)
}

func TestSession_ForeignChangeAlwaysDelivered(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)

	// Even with the own-write flag freshly set, attribution wins.
	if err := h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title("mine")}); err != nil {
		t.Fatalf("WriteImmediately: %v", err)
	}

	foreign := baselineEpisode()
	foreign.Title = "theirs"
	foreign.LastEditedBy = "u-other"
	store.push(foreign)

	if got := h.waitChange(t); got.Title != "theirs" {
		t.Errorf("foreign change Title = %q, want theirs", got.Title)
	}

	// A repeat of the identical foreign snapshot is still delivered:
	// attribution overrides duplicate-fingerprint suppression.
	store.push(foreign)
	if got := h.waitChange(t); got.Title != "theirs" {
		t.Errorf("repeated foreign change not delivered, got %+v", got)
	}
}

func TestSession_DuplicateNotificationSuppressed(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)

	changed := baselineEpisode()
	changed.Title = "new state"
	store.push(changed)
	h.waitChange(t)

	// Same structural state, no attribution: a duplicate notification.
	store.push(changed)
	h.expectNoChange(t, 150*time.Millisecond)
}

func TestSession_StaleOwnWriteFlagDoesNotDropChanges(t *testing.T) {
	cfg := testConfig()
	cfg.EchoSuppressWindow = 30 * time.Millisecond
	cfg.OwnWriteMinHold = 500 * time.Millisecond

	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, cfg)
	h.waitChange(t)

	if err := h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title("mine")}); err != nil {
		t.Fatalf("WriteImmediately: %v", err)
	}

	// The flag is still held, but older than the suppression window: an
	// unattributed change arriving now must be delivered, not eaten.
	time.Sleep(80 * time.Millisecond)
	late := baselineEpisode()
	late.Title = "recovered state"
	store.push(late)

	if got := h.waitChange(t); got.Title != "recovered state" {
		t.Errorf("late change Title = %q, want recovered state", got.Title)
	}
}

func TestSession_StaleFlagClearKeepsDuplicateSuppression(t *testing.T) {
	cfg := testConfig()
	cfg.EchoSuppressWindow = 30 * time.Millisecond
	cfg.OwnWriteMinHold = 500 * time.Millisecond

	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, cfg)
	h.waitChange(t)

	if err := h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title("mine")}); err != nil {
		t.Fatalf("WriteImmediately: %v", err)
	}

	// The flag is stale by now. An unattributed repeat of the last
	// delivered state is still a duplicate notification: clearing the
	// flag must not turn it into a delivery.
	time.Sleep(80 * time.Millisecond)
	store.push(baselineEpisode())
	h.expectNoChange(t, 150*time.Millisecond)

	// A genuinely changed snapshot after the clear is delivered.
	changed := baselineEpisode()
	changed.Title = "fresh state"
	store.push(changed)
	if got := h.waitChange(t); got.Title != "fresh state" {
		t.Errorf("changed Title = %q, want fresh state", got.Title)
	}
}

func TestSession_WriteWaitsForBaseline(t *testing.T) {
	// No initial snapshot: the store stays silent until the test pushes.
	store := &fakeStore{}
	h := newHarness(t, store, testConfig())

	done := make(chan error, 1)
	go func() {
		done <- h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title("early")})
	}()

	// The write must not commit before the baseline arrives.
	time.Sleep(30 * time.Millisecond)
	if n := store.commitCount(); n != 0 {
		t.Fatalf("commit before baseline, count = %d", n)
	}

	store.push(baselineEpisode())
	if err := <-done; err != nil {
		t.Fatalf("WriteImmediately: %v", err)
	}
	store.waitCommits(t, 1)
}

func TestSession_WriteProceedsAfterReadinessTimeout(t *testing.T) {
	store := &fakeStore{}
	h := newHarness(t, store, testConfig())

	start := time.Now()
	if err := h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title("unblocked")}); err != nil {
		t.Fatalf("WriteImmediately: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < testConfig().ReadinessTimeout {
		t.Errorf("write proceeded after %v, before the readiness timeout", elapsed)
	}
	store.waitCommits(t, 1)
}

func TestSession_CloseFlushesPendingWrite(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)

	if err := h.session.ScheduleWrite(docstore.Fields{Title: title("unflushed")}); err != nil {
		t.Fatalf("ScheduleWrite: %v", err)
	}
	h.session.Close()

	if n := store.commitCount(); n != 1 {
		t.Fatalf("commit count after close = %d, want 1", n)
	}
	if got := store.lastCommit(t); got.Title == nil || *got.Title != "unflushed" {
		t.Errorf("flushed Title = %v, want unflushed", got.Title)
	}
}

func TestSession_WriteAfterCloseFails(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode()}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)
	h.session.Close()

	if err := h.session.ScheduleWrite(docstore.Fields{Title: title("x")}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("ScheduleWrite after close = %v, want ErrSessionClosed", err)
	}
	if err := h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title("x")}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("WriteImmediately after close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_CommitFailureSurfaces(t *testing.T) {
	store := &fakeStore{initial: baselineEpisode(), commitErr: errors.New("disk full")}
	h := newHarness(t, store, testConfig())
	h.waitChange(t)

	err := h.session.WriteImmediately(context.Background(), docstore.Fields{Title: title("x")})
	if err == nil || err.Error() != "disk full" {
		t.Errorf("WriteImmediately error = %v, want disk full", err)
	}

	// Scheduled writes report through the error callback instead.
	if err := h.session.ScheduleWrite(docstore.Fields{Title: title("y")}); err != nil {
		t.Fatalf("ScheduleWrite: %v", err)
	}
	select {
	case err := <-h.errs:
		if err.Error() != "disk full" {
			t.Errorf("callback error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("commit failure never reached the error callback")
	}
}
