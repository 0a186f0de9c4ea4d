// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

/*
Package auth authenticates API callers.

Two credential schemes are supported:

  - API keys (X-API-Key header). Keys are cncp_<id>_<secret>; the ID is
    embedded so validation is a point lookup in the document store plus
    one bcrypt comparison. Only the hash is stored, the plaintext is
    shown once at issue time.
  - Session JWTs (Authorization: Bearer). HMAC-SHA256 signed, carrying
    the identity ID, display name and global role as claims.

Middleware.Authenticate resolves either scheme into a models.Identity
on the request context. RequireAdmin layers the global admin check on
top for grant-management routes.
*/
package auth
