// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

/*
Package api is the external HTTP surface.

Routes:

	GET  /healthz                          liveness
	GET  /metrics                          prometheus scrape
	GET  /api/external/shows               shows visible to the caller
	GET  /api/external/shows/{id}/episodes episodes visible to the caller
	GET  /api/external/episodes/{id}       full episode document
	PUT  /api/external/episodes/{id}       partial episode update
	GET  /api/external/shots/{id}          one shot, addressed by ID alone
	PUT  /api/external/shots/{id}          partial shot update
	POST /api/external/shots/{id}/images   multipart image upload
	POST /api/external/generate            pass-through generation call
	POST /api/admin/grants                 create grant (admin)
	DEL  /api/admin/grants                 delete grant (admin)
	POST /api/admin/identities             register identity (admin)
	PUT  /api/admin/identities/{id}/role   change global role (admin)
	POST /api/admin/identities/{id}/keys   issue API key (admin)
	DEL  /api/admin/keys/{id}              revoke API key (admin)
	GET  /blobs/{ref}                      stored shot image
	GET  /ws                               UI push channel upgrade

Every non-2xx response carries the {error, code, details} envelope with
stable codes; plugin clients match on the code. Mutations go through a
short-lived sync session so external edits share the writer path with
interactive ones: same attribution, no-op dedup and commit metrics.
*/
package api
