// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

// Package models defines the core data structures shared across Concepto:
// identities, shows, episodes with their nested segments and shots, and
// the grant records that scope collaborator roles to shows or single
// episodes.
//
// Roles form a total order (none < viewer < commenter < editor < owner <
// admin) so permission checks are ordinary comparisons rather than
// hand-maintained string switches.
package models
