// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/projecteax/concepto-sub007/internal/logging"
	"github.com/projecteax/concepto-sub007/internal/models"
)

// SnapshotFunc receives a full committed episode snapshot.
type SnapshotFunc func(ep *models.Episode)

// ErrorFunc receives asynchronous subscription failures.
type ErrorFunc func(err error)

// Subscribe opens a live subscription on one episode. The current
// snapshot is delivered first (the initial load), then one snapshot per
// commit, in per-episode commit order. The subscriber's own commits are
// delivered like anyone else's.
//
// Callbacks run on the subscription goroutine and must not block for
// long. The returned cancel function is idempotent; after it returns no
// further snapshots are delivered.
func (s *Store) Subscribe(ctx context.Context, episodeID string, onSnapshot SnapshotFunc, onError ErrorFunc) (func(), error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if onSnapshot == nil {
		return nil, fmt.Errorf("docstore: subscribe to %s: nil snapshot callback", episodeID)
	}

	subCtx, cancelCtx := context.WithCancel(ctx)
	messages, err := s.bus.Subscribe(subCtx, TopicEpisodeChanged(episodeID))
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("docstore: subscribe to %s: %w", episodeID, err)
	}

	// Holding the episode lock while reading the initial snapshot closes
	// the race between the initial load and a concurrent commit: any
	// commit that lands after the read is already captured by the bus
	// subscription above.
	lock := s.episodeLock(episodeID)
	lock.Lock()
	initial, err := s.GetEpisode(subCtx, episodeID)
	lock.Unlock()
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("docstore: subscribe to %s: initial load: %w", episodeID, err)
	}

	var once sync.Once
	cancel := func() {
		once.Do(cancelCtx)
	}

	go func() {
		defer cancel()

		onSnapshot(initial)

		// A commit racing the initial load above may be observed twice:
		// once in the initial read and once via the bus. Dropping
		// anything at or below the last delivered UpdatedAt keeps the
		// monotonic-UpdatedAt guarantee for this subscriber.
		last := initial.UpdatedAt

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var ep models.Episode
				if err := json.Unmarshal(msg.Payload, &ep); err != nil {
					msg.Nack()
					logging.Error().Err(err).Str("episode_id", episodeID).
						Msg("malformed snapshot on change bus")
					if onError != nil {
						onError(fmt.Errorf("docstore: decode snapshot for %s: %w", episodeID, err))
					}
					continue
				}
				msg.Ack()

				// Delivery can only stop via cancel; a snapshot observed
				// before cancellation is handed over even if cancel races in
				// right after this check.
				if !ep.UpdatedAt.After(last) {
					continue
				}
				last = ep.UpdatedAt

				select {
				case <-subCtx.Done():
					return
				default:
				}
				onSnapshot(&ep)
			}
		}
	}()

	return cancel, nil
}
