// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

// Package blob is the media object storage boundary for shot images.
// Episodes store blob references, never bytes; the filesystem
// implementation keeps the bytes under a configured root directory and
// the API serves them back under /blobs/.
package blob
