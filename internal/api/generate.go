// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/projecteax/concepto-sub007/internal/genai"
	"github.com/projecteax/concepto-sub007/internal/validation"
)

// generateRequest proxies one prompt to the generation service. The
// server adds nothing to the prompt; clients own prompt construction.
type generateRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=text image"`
	Prompt string `json:"prompt" validate:"required,min=1,max=32768"`
}

// Generate forwards a prompt to the generation service. Text comes
// back inline; images are stored as blobs and returned by reference.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		writeValidationError(w, ve)
		return
	}

	switch req.Kind {
	case "text":
		text, err := h.gen.GenerateText(r.Context(), req.Prompt)
		if err != nil {
			h.generationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	case "image":
		data, contentType, err := h.gen.GenerateImage(r.Context(), req.Prompt)
		if err != nil {
			h.generationError(w, err)
			return
		}
		ref, err := h.blobs.Put(r.Context(), "generated", contentType, bytes.NewReader(data))
		if err != nil {
			h.internalError(w, err, "store generated image")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"ref": ref,
			"url": "/blobs/" + ref,
		})
	}
}

func (h *Handler) generationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, genai.ErrDisabled):
		writeError(w, http.StatusNotImplemented, CodeUnavailable, "generation is not configured")
	case errors.Is(err, genai.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "generation service unavailable")
	default:
		h.internalError(w, err, "generate")
	}
}
