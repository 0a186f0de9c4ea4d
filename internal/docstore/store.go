// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/projecteax/concepto-sub007/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	episodeKeyPrefix      = "episode:"
	showKeyPrefix         = "show:"
	identityKeyPrefix     = "identity:"
	showGrantKeyPrefix    = "grant:show:"
	episodeGrantKeyPrefix = "grant:episode:"
	apiKeyKeyPrefix       = "apikey:"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("docstore: not found")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("docstore: store closed")
)

// ServerTimestamp is the sentinel callers pass for a time field that the
// store must fill with its own clock at commit time. Clients never
// generate commit timestamps themselves.
var ServerTimestamp = time.Unix(0, 0).UTC()

// IsServerTimestamp reports whether t is the server-assigned sentinel.
func IsServerTimestamp(t time.Time) bool {
	return t.Equal(ServerTimestamp)
}

// Fields is a partial episode update. Only non-nil fields are replaced;
// everything else is left untouched. The shape is declared here rather
// than accepting arbitrary nested maps, so exactly the declared instant
// fields are timestamp-converted and unknown shapes are rejected at the
// type level.
type Fields struct {
	// Title replaces the episode title when non-nil.
	Title *string `json:"title,omitempty"`

	// Segments replaces the whole segment collection when non-nil.
	// Document-level last-writer-wins: there is no per-segment merge.
	Segments []models.Segment `json:"segments,omitempty"`

	// LastEditedBy attributes the commit to an identity.
	LastEditedBy string `json:"last_edited_by,omitempty"`

	// LastEditedAt is the edit instant; pass ServerTimestamp to have the
	// store assign it at commit time.
	LastEditedAt time.Time `json:"last_edited_at,omitempty"`
}

// TopicEpisodeChanged returns the bus topic carrying committed snapshots
// of one episode.
func TopicEpisodeChanged(episodeID string) string {
	return "episode.changed." + episodeID
}

// Bus is the pub/sub transport for commit notifications. Production uses
// Watermill over NATS; tests use Watermill's gochannel implementation.
type Bus interface {
	message.Publisher
	message.Subscriber
}

// Store is the BadgerDB-backed document store.
type Store struct {
	db  *badger.DB
	bus Bus
	now func() time.Time

	mu       sync.Mutex
	closed   bool
	epLocks  map[string]*sync.Mutex
	lastSeen map[string]time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the commit clock. Tests use this for deterministic
// UpdatedAt values.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates a Store over an open Badger database and a message bus.
func Open(db *badger.DB, bus Bus, opts ...Option) *Store {
	s := &Store{
		db:       db,
		bus:      bus,
		now:      time.Now,
		epLocks:  map[string]*sync.Mutex{},
		lastSeen: map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close marks the store closed. The Badger database and the bus are
// owned by the caller and closed separately.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// episodeLock returns the per-episode commit lock, creating it on first
// use. Per-episode locking is what linearizes commits to one document.
func (s *Store) episodeLock(episodeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.epLocks[episodeID]
	if !ok {
		l = &sync.Mutex{}
		s.epLocks[episodeID] = l
	}
	return l
}

// CreateEpisode persists a new episode and publishes its first snapshot.
// UpdatedAt is server-assigned.
func (s *Store) CreateEpisode(ctx context.Context, ep *models.Episode) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	lock := s.episodeLock(ep.ID)
	lock.Lock()
	defer lock.Unlock()

	ep.UpdatedAt = s.nextCommitTime(ep.ID)
	if err := s.put(episodeKeyPrefix+ep.ID, ep); err != nil {
		return fmt.Errorf("create episode %s: %w", ep.ID, err)
	}
	return s.publishSnapshot(ep)
}

// GetEpisode loads an episode by ID.
func (s *Store) GetEpisode(ctx context.Context, episodeID string) (*models.Episode, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var ep models.Episode
	if err := s.get(episodeKeyPrefix+episodeID, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// ListEpisodes returns all episodes belonging to showID.
func (s *Store) ListEpisodes(ctx context.Context, showID string) ([]models.Episode, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var episodes []models.Episode
	err := s.scan(episodeKeyPrefix, func(val []byte) error {
		var ep models.Episode
		if err := json.Unmarshal(val, &ep); err != nil {
			return err
		}
		if ep.ShowID == showID {
			episodes = append(episodes, ep)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list episodes of %s: %w", showID, err)
	}
	return episodes, nil
}

// Commit applies a partial-field update to an episode, assigns the
// server commit time, persists the result and publishes the full
// committed snapshot on the change bus.
//
// Commits to the same episode are serialized; UpdatedAt never decreases
// across commits as observed by a subscriber.
func (s *Store) Commit(ctx context.Context, episodeID string, fields Fields) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	lock := s.episodeLock(episodeID)
	lock.Lock()
	defer lock.Unlock()

	var ep models.Episode
	if err := s.get(episodeKeyPrefix+episodeID, &ep); err != nil {
		return fmt.Errorf("commit to %s: %w", episodeID, err)
	}

	if fields.Title != nil {
		ep.Title = *fields.Title
	}
	if fields.Segments != nil {
		ep.Segments = fields.Segments
	}
	if fields.LastEditedBy != "" {
		ep.LastEditedBy = fields.LastEditedBy
	}

	commitTime := s.nextCommitTime(episodeID)
	ep.UpdatedAt = commitTime
	if IsServerTimestamp(fields.LastEditedAt) {
		ep.LastEditedAt = commitTime
	} else if !fields.LastEditedAt.IsZero() {
		ep.LastEditedAt = fields.LastEditedAt
	}

	if err := s.put(episodeKeyPrefix+episodeID, &ep); err != nil {
		return fmt.Errorf("commit to %s: %w", episodeID, err)
	}
	return s.publishSnapshot(&ep)
}

// nextCommitTime returns a commit timestamp strictly greater than the
// previous one handed out for this episode, guarding against clock
// regression. Caller must hold the episode lock.
func (s *Store) nextCommitTime(episodeID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC()
	if last, ok := s.lastSeen[episodeID]; ok && !t.After(last) {
		t = last.Add(time.Nanosecond)
	}
	s.lastSeen[episodeID] = t
	return t
}

// publishSnapshot pushes the committed episode to its change topic.
func (s *Store) publishSnapshot(ep *models.Episode) error {
	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", ep.ID, err)
	}
	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set("episode_id", ep.ID)
	msg.Metadata.Set("last_edited_by", ep.LastEditedBy)
	if err := s.bus.Publish(TopicEpisodeChanged(ep.ID), msg); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", ep.ID, err)
	}
	return nil
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// put marshals v and stores it at key.
func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get loads and unmarshals the value at key into v.
func (s *Store) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// scan iterates all values under prefix.
func (s *Store) scan(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// delete removes the value at key. Missing keys are not an error.
func (s *Store) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
