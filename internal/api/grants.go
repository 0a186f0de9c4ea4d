// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/projecteax/concepto-sub007/internal/auth"
	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/models"
	"github.com/projecteax/concepto-sub007/internal/validation"
)

// grantRequest creates or deletes a grant. Role must be one of the
// grantable roles; owner and admin are derived, never granted.
type grantRequest struct {
	GranteeID string `json:"grantee_id" validate:"required"`
	ShowID    string `json:"show_id" validate:"required"`
	EpisodeID string `json:"episode_id"`
	Role      string `json:"role" validate:"required,grantable_role"`
}

// CreateGrant stores a show- or episode-level grant. Admin only, which
// the router enforces.
func (h *Handler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		writeValidationError(w, ve)
		return
	}

	if _, err := h.store.GetShow(r.Context(), req.ShowID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "show not found")
		} else {
			h.internalError(w, err, "load show")
		}
		return
	}
	if req.EpisodeID != "" {
		ep, err := h.store.GetEpisode(r.Context(), req.EpisodeID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				writeError(w, http.StatusNotFound, CodeNotFound, "episode not found")
			} else {
				h.internalError(w, err, "load episode")
			}
			return
		}
		if ep.ShowID != req.ShowID {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "episode does not belong to show")
			return
		}
	}

	grant := &models.Grant{
		GranteeID: req.GranteeID,
		ShowID:    req.ShowID,
		EpisodeID: req.EpisodeID,
		Role:      models.ParseRole(req.Role),
		GrantedBy: identity.ID,
		GrantedAt: time.Now(),
	}
	if err := h.store.PutGrant(r.Context(), grant); err != nil {
		h.internalError(w, err, "store grant")
		return
	}

	h.logger.Info().
		Str("grantee_id", grant.GranteeID).
		Str("show_id", grant.ShowID).
		Str("episode_id", grant.EpisodeID).
		Str("role", grant.Role.String()).
		Str("granted_by", identity.ID).
		Msg("grant created")
	writeJSON(w, http.StatusCreated, grant)
}

// DeleteGrant removes a grant. Idempotent: deleting an absent grant
// still returns 204.
func (h *Handler) DeleteGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if req.GranteeID == "" || req.ShowID == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "grantee_id and show_id are required")
		return
	}

	grant := &models.Grant{
		GranteeID: req.GranteeID,
		ShowID:    req.ShowID,
		EpisodeID: req.EpisodeID,
	}
	if err := h.store.DeleteGrant(r.Context(), grant); err != nil {
		h.internalError(w, err, "delete grant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createIdentityRequest registers an identity.
type createIdentityRequest struct {
	ID          string `json:"id" validate:"required,min=1,max=128"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=256"`
}

// CreateIdentity registers a collaborator identity with the default
// global role.
func (h *Handler) CreateIdentity(w http.ResponseWriter, r *http.Request) {
	var req createIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		writeValidationError(w, ve)
		return
	}

	identity := &models.Identity{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		Role:        models.GlobalRoleUser,
		CreatedAt:   time.Now(),
	}
	if err := h.store.PutIdentity(r.Context(), identity); err != nil {
		h.internalError(w, err, "store identity")
		return
	}
	writeJSON(w, http.StatusCreated, identity)
}

// promoteRequest changes an identity's global role.
type promoteRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// PromoteIdentity sets an identity's global role. Only admins reach
// this handler; promotion to admin and demotion back are both allowed.
func (h *Handler) PromoteIdentity(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		writeValidationError(w, ve)
		return
	}

	identityID := chi.URLParam(r, "id")
	identity, err := h.store.GetIdentity(r.Context(), identityID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "identity not found")
		} else {
			h.internalError(w, err, "load identity")
		}
		return
	}

	identity.Role = models.GlobalRole(req.Role)
	if err := h.store.PutIdentity(r.Context(), identity); err != nil {
		h.internalError(w, err, "store identity")
		return
	}

	actor, _ := auth.IdentityFromContext(r.Context())
	h.logger.Info().
		Str("identity_id", identity.ID).
		Str("role", string(identity.Role)).
		Str("promoted_by", actor.ID).
		Msg("global role changed")
	writeJSON(w, http.StatusOK, identity)
}

// issueKeyRequest labels a new API key.
type issueKeyRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

// issueKeyResponse returns the plaintext key exactly once.
type issueKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Plaintext string `json:"key"`
}

// IssueAPIKey creates an API key for an identity.
func (h *Handler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	var req issueKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		writeValidationError(w, ve)
		return
	}

	identityID := chi.URLParam(r, "id")
	record, plaintext, err := h.keys.Issue(r.Context(), identityID, req.Name)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "identity not found")
		} else {
			h.internalError(w, err, "issue key")
		}
		return
	}
	writeJSON(w, http.StatusCreated, issueKeyResponse{
		ID:        record.ID,
		Name:      record.Name,
		Plaintext: plaintext,
	})
}

// RevokeAPIKey revokes an API key by ID.
func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if err := h.keys.Revoke(r.Context(), keyID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "key not found")
		} else {
			h.internalError(w, err, "revoke key")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
