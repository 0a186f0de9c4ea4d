// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/projecteax/concepto-sub007/internal/validation"
)

// Stable error codes used in the error envelope. Plugin clients match
// on these, so they never change meaning.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnavailable  = "UNAVAILABLE"
	CodeInternal     = "INTERNAL"
)

// ErrorResponse is the error envelope every non-2xx response carries.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// writeError emits the error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorDetails(w, status, code, message, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// writeValidationError converts a request validation failure into the
// envelope, keeping the per-field details.
func writeValidationError(w http.ResponseWriter, ve *validation.RequestValidationError) {
	apiErr := ve.ToAPIError()
	writeErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
}

// writeJSON emits a success payload.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
