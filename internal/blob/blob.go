// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a requested blob does not exist.
var ErrNotFound = errors.New("blob: not found")

// Store is the media object storage boundary. Shot images
// (main image, start frame, end frame) go through here; the rest of
// the system only ever handles the returned reference.
type Store interface {
	// Put stores a blob and returns its stable reference.
	Put(ctx context.Context, name, contentType string, r io.Reader) (string, error)

	// URL resolves a reference to a URL the UI can load.
	URL(ctx context.Context, ref string) (string, error)

	// Open reads a stored blob back. Callers must close the reader.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}
