// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

// Package access resolves the effective role an identity holds for a show
// or episode, and filters visibility accordingly.
//
// The resolution rules, strongest first:
//
//  1. Global admin resolves to RoleAdmin everywhere.
//  2. The show owner resolves to RoleOwner for the show and every episode
//     in it.
//  3. An episode-level grant overrides any show-level grant for that
//     episode -- override, not merge: an explicit episode viewer grant
//     downgrades a show editor for that one episode.
//  4. Otherwise the highest matching show-level grant applies.
//  5. Otherwise RoleNone.
//
// Denial is a value (RoleNone / false), never an error. When grant
// loading fails the Resolver degrades to empty grant sets: visibility
// fails closed to ownership, never open.
package access
