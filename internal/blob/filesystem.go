// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package blob

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FilesystemStore stores blobs as files under a root directory. The
// reference is the generated file name; URLs are served by the API's
// /blobs/ route.
type FilesystemStore struct {
	root   string
	logger zerolog.Logger
}

// NewFilesystemStore creates the store, making the root directory if
// needed.
func NewFilesystemStore(root string, logger *zerolog.Logger) (*FilesystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root path is empty")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &FilesystemStore{
		root:   root,
		logger: logger.With().Str("component", "blob_store").Logger(),
	}, nil
}

// Put writes the blob to a uniquely named file. The extension is
// derived from the content type so the file is recognizable on disk.
func (s *FilesystemStore) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	ref := uuid.New().String() + extensionFor(contentType)

	f, err := os.OpenFile(filepath.Join(s.root, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create blob %s: %w", ref, err)
	}

	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.root, ref))
		return "", fmt.Errorf("write blob %s: %w", ref, err)
	}

	s.logger.Debug().
		Str("ref", ref).
		Str("name", name).
		Int64("bytes", written).
		Msg("blob stored")
	return ref, nil
}

// URL returns the API path that serves the blob.
func (s *FilesystemStore) URL(ctx context.Context, ref string) (string, error) {
	if _, err := os.Stat(filepath.Join(s.root, filepath.Base(ref))); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat blob %s: %w", ref, err)
	}
	return "/blobs/" + ref, nil
}

// Open reads a stored blob. The ref is sanitized with filepath.Base to
// keep lookups inside the root.
func (s *FilesystemStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.Base(ref)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", ref, err)
	}
	return f, nil
}

// extensionFor maps a content type to a file extension, defaulting to
// .bin for anything unrecognized.
func extensionFor(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err == nil && len(exts) > 0 {
		// mime returns extensions unordered; prefer the common ones.
		for _, want := range []string{".jpg", ".png", ".webp", ".gif"} {
			for _, ext := range exts {
				if ext == want {
					return ext
				}
			}
		}
		return exts[0]
	}
	if strings.HasPrefix(contentType, "image/") {
		return "." + strings.TrimPrefix(contentType, "image/")
	}
	return ".bin"
}
