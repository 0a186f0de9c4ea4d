// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

// Package syncengine keeps an editor's local view of one episode
// consistent with the shared document store under concurrent writes
// from other editors.
//
// A Session wires three concerns around one store subscription:
//
//   - a debounced writer that coalesces local mutations, drops
//     fingerprint-equal no-ops and commits after an idle window (or
//     immediately for critical edits);
//   - readiness gating, so a write never races ahead of the initial
//     snapshot load;
//   - an echo suppressor that decides, per incoming snapshot, whether
//     it is a foreign change to deliver or merely the echo of this
//     session's own commit.
//
// All session state lives on a single event-loop goroutine; there is no
// ambient module state, so any number of sessions coexist in one
// process without cross-talk. The concurrency contract is
// last-writer-wins at episode granularity: one commit in flight per
// session, commits linearized by the store, no field-level merging.
package syncengine
