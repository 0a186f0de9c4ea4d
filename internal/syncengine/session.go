// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package syncengine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/logging"
	"github.com/projecteax/concepto-sub007/internal/metrics"
	"github.com/projecteax/concepto-sub007/internal/models"
)

// writeRequest carries one local mutation into the event loop. result
// is non-nil only for immediate writes, which block their caller until
// the commit settles.
type writeRequest struct {
	fields    docstore.Fields
	immediate bool
	result    chan error
}

// commitResult reports a finished commit back to the event loop.
// results carries every immediate-write waiter whose payload was folded
// into this commit.
type commitResult struct {
	err      error
	duration time.Duration
	fp       string
	results  []chan error
}

// Session is one editor's live sync session on one episode. All
// mutable state is confined to the run goroutine; the exported methods
// only exchange messages with it.
type Session struct {
	episodeID string
	store     Store
	identity  *models.Identity
	cfg       Config

	onRemoteChange RemoteChangeFunc
	onError        docstore.ErrorFunc

	cancelSub func()
	requests  chan writeRequest
	snapshots chan *models.Episode

	commitDone chan commitResult
	closing    chan struct{}
	loopDone   chan struct{}
	closeOnce  sync.Once
}

// enqueueSnapshot is the store subscription callback. It must not block
// the store's delivery goroutine, so an overfull buffer drops the
// oldest snapshot: only the newest state matters under last-writer-wins.
func (s *Session) enqueueSnapshot(ep *models.Episode) {
	for {
		select {
		case s.snapshots <- ep:
			return
		case <-s.closing:
			return
		default:
		}
		select {
		case <-s.snapshots:
		default:
		}
	}
}

func (s *Session) forwardError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// ScheduleWrite records a local mutation for the debounced writer. The
// commit happens after the idle window elapses; a newer write before
// then supersedes this one. Commit failures are reported through the
// session's error callback.
func (s *Session) ScheduleWrite(fields docstore.Fields) error {
	select {
	case s.requests <- writeRequest{fields: fields}:
		return nil
	case <-s.closing:
		return ErrSessionClosed
	}
}

// WriteImmediately bypasses the debounce window and blocks until the
// commit settles. It still respects readiness gating, and it cancels
// any pending debounced write, whose payload it supersedes.
func (s *Session) WriteImmediately(ctx context.Context, fields docstore.Fields) error {
	result := make(chan error, 1)
	select {
	case s.requests <- writeRequest{fields: fields, immediate: true, result: result}:
	case <-s.closing:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the subscription, flushes any pending debounced write
// and waits for the in-flight commit, if any, to settle. Safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
	<-s.loopDone
}

// loopState holds the event loop's working state. It never escapes the
// run goroutine.
type loopState struct {
	ready           bool
	ownWriteAt      time.Time
	lastDeliveredFP string
	lastCommittedFP string

	pending        *docstore.Fields
	pendingFP      string
	pendingResults []chan error
	inFlight       bool

	debounce   *time.Timer
	debounceC  <-chan time.Time
	release    *time.Timer
	releaseC   <-chan time.Time
	readiness  *time.Timer
	readinessC <-chan time.Time
}

func (st *loopState) stopTimers() {
	if st.debounce != nil {
		st.debounce.Stop()
	}
	if st.release != nil {
		st.release.Stop()
	}
	if st.readiness != nil {
		st.readiness.Stop()
	}
}

func (s *Session) run() {
	defer close(s.loopDone)

	log := logging.Logger().With().
		Str("component", "syncengine").
		Str("episode_id", s.episodeID).
		Str("user_id", s.identity.ID).
		Logger()

	metrics.SyncActiveSessions.Inc()
	defer metrics.SyncActiveSessions.Dec()

	st := &loopState{}
	defer st.stopTimers()
	defer s.cancelSub()

	for {
		select {
		case ep := <-s.snapshots:
			s.handleSnapshot(st, ep, &log)

		case req := <-s.requests:
			s.handleWrite(st, req, &log)

		case res := <-s.commitDone:
			s.handleCommitDone(st, res, &log)

		case <-st.debounceC:
			st.debounceC = nil
			s.maybeCommit(st, &log)

		case <-st.readinessC:
			st.readinessC = nil
			if !st.ready {
				log.Warn().
					Dur("timeout", s.cfg.ReadinessTimeout).
					Msg("initial snapshot not received in time, committing anyway")
				metrics.SyncReadinessTimeouts.Inc()
				st.ready = true
				s.maybeCommit(st, &log)
			}

		case <-st.releaseC:
			st.releaseC = nil
			st.ownWriteAt = time.Time{}

		case <-s.closing:
			s.shutdown(st, &log)
			return
		}
	}
}

// handleSnapshot applies the echo suppression decision table to one
// incoming snapshot, in precedence order:
//
//  1. the first snapshot is the baseline: always delivered, and it
//     marks the session ready for writes;
//  2. a snapshot attributed to another editor is always delivered, even
//     when its structural fingerprint is unchanged;
//  3. a snapshot arriving while the own-write flag is fresh is this
//     session's own echo: suppressed;
//  4. an own-write flag older than the suppression window is stale
//     state from a lost notification, never a reason to drop a change:
//     cleared, and the snapshot judged like any other unattributed one;
//  5. a snapshot with an unchanged fingerprint is a duplicate
//     notification: suppressed. Only foreign attribution (2) overrides
//     this check.
func (s *Session) handleSnapshot(st *loopState, ep *models.Episode, log *zerolog.Logger) {
	fp := snapshotFingerprint(ep)

	if !st.ready {
		st.ready = true
		st.lastDeliveredFP = fp
		if st.readiness != nil {
			st.readiness.Stop()
			st.readinessC = nil
		}
		metrics.RecordDelivered("baseline")
		s.onRemoteChange(ep)
		s.maybeCommit(st, log)
		return
	}

	foreign := ep.LastEditedBy != "" && ep.LastEditedBy != s.identity.ID
	if foreign {
		st.lastDeliveredFP = fp
		metrics.RecordDelivered("foreign")
		s.onRemoteChange(ep)
		return
	}

	if !st.ownWriteAt.IsZero() {
		age := time.Since(st.ownWriteAt)
		if age <= s.cfg.EchoSuppressWindow {
			st.lastDeliveredFP = fp
			metrics.RecordSuppressed("own_echo")
			log.Debug().Str("fingerprint", fp).Msg("suppressed own-write echo")
			return
		}
		log.Debug().Dur("age", age).Msg("clearing stale own-write flag")
		st.ownWriteAt = time.Time{}
		if st.release != nil {
			st.release.Stop()
			st.releaseC = nil
		}
	}

	if fp == st.lastDeliveredFP {
		metrics.RecordSuppressed("duplicate")
		log.Debug().Str("fingerprint", fp).Msg("suppressed duplicate notification")
		return
	}

	st.lastDeliveredFP = fp
	metrics.RecordDelivered("unattributed")
	s.onRemoteChange(ep)
}

// handleWrite folds one local mutation into the pending slot. A newer
// write supersedes the pending one rather than queueing behind it;
// fingerprint-equal repeats of the last committed state are dropped.
func (s *Session) handleWrite(st *loopState, req writeRequest, log *zerolog.Logger) {
	fp := writeFingerprint(req.fields)
	if fp == st.lastCommittedFP && st.pending == nil && !st.inFlight {
		metrics.SyncWritesDroppedNoOp.Inc()
		log.Debug().Str("fingerprint", fp).Msg("dropped no-op write")
		if req.result != nil {
			req.result <- nil
		}
		return
	}
	if st.pending != nil {
		metrics.SyncWritesCoalesced.Inc()
	}

	// A superseded immediate write still gets an answer: its waiter is
	// accumulated on the pending slot, so every displaced caller shares
	// the outcome of the commit that finally lands.
	if req.result != nil {
		st.pendingResults = append(st.pendingResults, req.result)
	}

	fields := req.fields
	st.pending = &fields
	st.pendingFP = fp

	if req.immediate {
		if st.debounce != nil {
			st.debounce.Stop()
			st.debounceC = nil
		}
		s.maybeCommit(st, log)
		return
	}

	// Restart the idle window from this write.
	if st.debounce == nil {
		st.debounce = time.NewTimer(s.cfg.DebounceWindow)
	} else {
		st.debounce.Stop()
		st.debounce.Reset(s.cfg.DebounceWindow)
	}
	st.debounceC = st.debounce.C
}

// maybeCommit starts the pending commit if the session is ready and no
// commit is already in flight. Before readiness it arms a bounded wait
// rather than blocking forever on a snapshot that may never come.
func (s *Session) maybeCommit(st *loopState, log *zerolog.Logger) {
	if st.pending == nil || st.inFlight {
		return
	}
	if !st.ready {
		if st.readinessC == nil {
			st.readiness = time.NewTimer(s.cfg.ReadinessTimeout)
			st.readinessC = st.readiness.C
		}
		return
	}
	if st.debounceC != nil {
		// The idle window is still running; only an immediate write or
		// its expiry lands here with the channel armed.
		return
	}

	fields := *st.pending
	fp := st.pendingFP
	results := st.pendingResults
	st.pending = nil
	st.pendingFP = ""
	st.pendingResults = nil
	st.inFlight = true

	go func() {
		// The commit is already past the point of user intent; a
		// caller's cancellation must not abort it halfway.
		start := time.Now()
		err := s.store.Commit(context.Background(), s.episodeID, fields)
		s.commitDone <- commitResult{err: err, duration: time.Since(start), fp: fp, results: results}
	}()
}

func (s *Session) handleCommitDone(st *loopState, res commitResult, log *zerolog.Logger) {
	st.inFlight = false
	metrics.RecordCommit(res.duration, res.err)

	if res.err != nil {
		// A failed commit never suppresses snapshots: clear the flag so
		// the next foreign or recovered state is delivered.
		st.ownWriteAt = time.Time{}
		log.Error().Err(res.err).Msg("commit failed")
		if len(res.results) == 0 {
			s.forwardError(res.err)
		}
		for _, ch := range res.results {
			ch <- res.err
		}
	} else {
		st.lastCommittedFP = res.fp
		st.ownWriteAt = time.Now()
		hold := s.cfg.ownWriteHold(res.duration)
		if st.release == nil {
			st.release = time.NewTimer(hold)
		} else {
			st.release.Stop()
			st.release.Reset(hold)
		}
		st.releaseC = st.release.C
		log.Debug().
			Dur("commit_duration", res.duration).
			Dur("own_write_hold", hold).
			Msg("commit applied")
		for _, ch := range res.results {
			ch <- nil
		}
	}

	// A write superseded the committed payload while it was in flight.
	if st.pending != nil && st.debounceC == nil {
		s.maybeCommit(st, log)
	}
}

// shutdown flushes the pending write, if any, and waits for the
// in-flight commit so no accepted mutation is silently lost.
func (s *Session) shutdown(st *loopState, log *zerolog.Logger) {
	if st.inFlight {
		res := <-s.commitDone
		st.inFlight = false
		if res.err != nil {
			log.Error().Err(res.err).Msg("commit failed during shutdown")
		}
		for _, ch := range res.results {
			ch <- res.err
		}
	}

	if st.pending != nil {
		err := s.store.Commit(context.Background(), s.episodeID, *st.pending)
		if err != nil {
			log.Error().Err(err).Msg("flush on close failed")
		}
		if len(st.pendingResults) == 0 && err != nil {
			s.forwardError(err)
		}
		for _, ch := range st.pendingResults {
			ch <- err
		}
		st.pending = nil
		st.pendingResults = nil
	}
}
