// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

// Package genai is the boundary to the external text/image generation
// service. The client wraps an HTTP endpoint in a circuit breaker and
// a request rate limiter; prompt construction stays with callers.
package genai
