// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

// Package docstore is the subscribable document store backing the sync
// engine: a BadgerDB-persisted key-document database whose commits are
// pushed to subscribers over a Watermill message bus (NATS in
// production, in-process go-channels in tests).
//
// Contract relied on by the sync engine:
//
//   - Commit applies a partial-field update, assigns a monotonically
//     non-decreasing UpdatedAt, and publishes the full committed snapshot
//     to every subscriber of that episode -- including the committer.
//   - Subscribe delivers the current snapshot first (the initial load),
//     then one snapshot per commit, in per-episode commit order.
//   - The store does not distinguish self from foreign writers; echo
//     suppression is reconstructed downstream from LastEditedBy.
//
// Commits to a single episode are linearized with a per-episode lock.
// No cross-episode ordering is provided or needed.
package docstore
