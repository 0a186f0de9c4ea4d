// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

/*
Package validation provides request payload validation for the HTTP API.

Built on go-playground/validator v10 with a thread-safe singleton
instance. Struct metadata is cached after first use, so validation of a
request type costs a map lookup plus the field checks.

# Custom Validators

  - grantable_role: the role strings an administrator may grant
    (viewer, commenter, editor). Owner is derived from show ownership
    and admin from the global role; neither can appear in a grant.

# Error Format

ValidateStruct returns a *RequestValidationError which converts to the
API's error envelope via ToAPIError:

	{
	    "error": "Role must be a grantable role (viewer, commenter, editor)",
	    "code": "VALIDATION_ERROR",
	    "details": {"field": "Role", "tag": "grantable_role", "value": "owner"}
	}

# Usage

	type ShotUpdateRequest struct {
	    Audio     *string  `json:"audio" validate:"omitempty,max=20000"`
	    WordCount *int     `json:"wordCount" validate:"omitempty,gte=0"`
	    Runtime   *float64 `json:"runtime" validate:"omitempty,gte=0"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError()
	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
	    return
	}

See Also:

  - internal/api: request types carrying validate tags
  - internal/models: role parsing behind the grantable_role validator
*/
package validation
