// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package syncengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/models"
)

// Store is the document-store surface the engine consumes. Implemented
// by docstore.Store; tests substitute a fake.
type Store interface {
	// Subscribe opens a live subscription delivering the current
	// snapshot first, then one snapshot per commit.
	Subscribe(ctx context.Context, episodeID string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (func(), error)

	// Commit applies a partial-field update and pushes the committed
	// snapshot to all subscribers.
	Commit(ctx context.Context, episodeID string, fields docstore.Fields) error
}

// ErrSessionClosed is returned for writes against a closed session.
var ErrSessionClosed = errors.New("syncengine: session closed")

// RemoteChangeFunc receives snapshots that survived echo and duplicate
// suppression. It runs on the session's event loop and must not block.
type RemoteChangeFunc func(ep *models.Episode)

// Engine opens per-episode sync sessions for one identity.
type Engine struct {
	store    Store
	identity *models.Identity
	cfg      Config
}

// New creates an engine for identity over store.
func New(store Store, identity *models.Identity, cfg Config) *Engine {
	return &Engine{store: store, identity: identity, cfg: cfg.withDefaults()}
}

// OpenSession opens a sync session on one episode. onRemoteChange is
// invoked for the baseline snapshot and every delivered remote change;
// onError (optional) receives subscription failures and the commit
// failures of debounced writes.
//
// The session does not auto-reconnect after a subscription error:
// resuming blindly would bypass the readiness gate, so reconnection
// policy belongs to the caller.
func (e *Engine) OpenSession(ctx context.Context, episodeID string, onRemoteChange RemoteChangeFunc, onError docstore.ErrorFunc) (*Session, error) {
	if onRemoteChange == nil {
		return nil, fmt.Errorf("syncengine: open session %s: nil remote change callback", episodeID)
	}

	s := &Session{
		episodeID:      episodeID,
		store:          e.store,
		identity:       e.identity,
		cfg:            e.cfg,
		onRemoteChange: onRemoteChange,
		onError:        onError,
		requests:       make(chan writeRequest),
		snapshots:      make(chan *models.Episode, 16),
		commitDone:     make(chan commitResult, 1),
		closing:        make(chan struct{}),
		loopDone:       make(chan struct{}),
	}

	cancelSub, err := e.store.Subscribe(ctx, episodeID, s.enqueueSnapshot, s.forwardError)
	if err != nil {
		return nil, fmt.Errorf("syncengine: open session %s: %w", episodeID, err)
	}
	s.cancelSub = cancelSub

	go s.run()
	return s, nil
}
