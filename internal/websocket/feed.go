// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package websocket

import (
	"context"
	"fmt"

	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/logging"
	"github.com/projecteax/concepto-sub007/internal/models"
)

// feed is one upstream change subscription shared by every client
// watching the same episode. Reference counted so the subscription is
// opened on the first watcher and canceled with the last.
type feed struct {
	refs   int
	cancel func()
}

// acquireFeed opens the upstream subscription for episodeID on the
// first reference. Called only from the hub loop.
func (h *Hub) acquireFeed(ctx context.Context, episodeID string) error {
	if f, ok := h.feeds[episodeID]; ok {
		f.refs++
		return nil
	}
	if h.source == nil {
		return fmt.Errorf("websocket: no change source configured")
	}

	cancel, err := h.source.Subscribe(ctx, episodeID,
		func(ep *models.Episode) { h.BroadcastEpisodeChanged(ep) },
		func(err error) {
			logging.Error().Err(err).Str("episode_id", episodeID).Msg("change feed error")
		},
	)
	if err != nil {
		return fmt.Errorf("websocket: subscribe to %s: %w", episodeID, err)
	}
	h.feeds[episodeID] = &feed{refs: 1, cancel: cancel}
	logging.Debug().Str("episode_id", episodeID).Msg("change feed opened")
	return nil
}

// releaseFeed drops one reference and cancels the upstream subscription
// when the last watcher leaves. Called only from the hub loop.
func (h *Hub) releaseFeed(episodeID string) {
	f, ok := h.feeds[episodeID]
	if !ok {
		return
	}
	f.refs--
	if f.refs > 0 {
		return
	}
	f.cancel()
	delete(h.feeds, episodeID)
	logging.Debug().Str("episode_id", episodeID).Msg("change feed closed")
}

// StoreSource adapts docstore.Store to the ChangeSource interface.
type StoreSource struct {
	Store *docstore.Store
}

func (s StoreSource) Subscribe(ctx context.Context, episodeID string, onSnapshot func(*models.Episode), onError func(error)) (func(), error) {
	return s.Store.Subscribe(ctx, episodeID, docstore.SnapshotFunc(onSnapshot), docstore.ErrorFunc(onError))
}
