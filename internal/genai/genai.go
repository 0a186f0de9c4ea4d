// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package genai

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrDisabled is returned when generation is not configured.
	ErrDisabled = errors.New("genai: generation disabled")

	// ErrUnavailable is returned when the circuit breaker has the
	// upstream marked down.
	ErrUnavailable = errors.New("genai: generation service unavailable")
)

// Generator is the generation service boundary. Prompt construction
// and result interpretation live with the caller; this interface only
// moves opaque requests across the wire.
type Generator interface {
	// GenerateText produces text for a prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateImage produces an image for a prompt. Returns the image
	// bytes and their content type.
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

// Disabled is the Generator used when no generation service is
// configured. Every call fails with ErrDisabled.
type Disabled struct{}

func (Disabled) GenerateText(context.Context, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) GenerateImage(context.Context, string) ([]byte, string, error) {
	return nil, "", ErrDisabled
}
