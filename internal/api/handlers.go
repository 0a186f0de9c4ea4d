// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/projecteax/concepto-sub007/internal/access"
	"github.com/projecteax/concepto-sub007/internal/auth"
	"github.com/projecteax/concepto-sub007/internal/blob"
	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/genai"
	"github.com/projecteax/concepto-sub007/internal/metrics"
	"github.com/projecteax/concepto-sub007/internal/models"
	"github.com/projecteax/concepto-sub007/internal/syncengine"
	"github.com/projecteax/concepto-sub007/internal/validation"
)

// maxUploadBytes bounds one multipart image upload request.
const maxUploadBytes = 64 << 20

// Handler implements the external HTTP surface.
type Handler struct {
	store   *docstore.Store
	blobs   blob.Store
	keys    *auth.KeyManager
	gen     genai.Generator
	syncCfg syncengine.Config
	logger  zerolog.Logger
}

// NewHandler creates the handler set.
func NewHandler(store *docstore.Store, blobs blob.Store, keys *auth.KeyManager, gen genai.Generator, syncCfg syncengine.Config, logger *zerolog.Logger) *Handler {
	return &Handler{
		store:   store,
		blobs:   blobs,
		keys:    keys,
		gen:     gen,
		syncCfg: syncCfg,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// resolver builds an access resolver for the request identity.
func (h *Handler) resolver(r *http.Request) (*access.Resolver, *models.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil, nil, false
	}
	return access.NewResolver(r.Context(), identity, h.store), identity, true
}

// episodeWithShow loads an episode and its show, translating missing
// records to a 404 envelope.
func (h *Handler) episodeWithShow(w http.ResponseWriter, r *http.Request, episodeID string) (*models.Episode, *models.Show, bool) {
	ep, err := h.store.GetEpisode(r.Context(), episodeID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "episode not found")
		} else {
			h.internalError(w, err, "load episode")
		}
		return nil, nil, false
	}
	show, err := h.store.GetShow(r.Context(), ep.ShowID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		h.internalError(w, err, "load show")
		return nil, nil, false
	}
	return ep, show, true
}

func (h *Handler) internalError(w http.ResponseWriter, err error, op string) {
	h.logger.Error().Err(err).Str("op", op).Msg("request failed")
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func denyPermission(w http.ResponseWriter, message string) {
	metrics.APIPermissionDenials.Inc()
	writeError(w, http.StatusForbidden, CodeForbidden, message)
}

// GetEpisode returns the full episode with all segments and shots.
func (h *Handler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	resolver, _, ok := h.resolver(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	ep, show, ok := h.episodeWithShow(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !resolver.RoleForEpisode(ep, show).CanView() {
		denyPermission(w, "no access to this episode")
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

// shotResponse wraps a shot with the episode that contains it.
type shotResponse struct {
	EpisodeID string       `json:"episode_id"`
	Shot      *models.Shot `json:"shot"`
}

// GetShot returns one shot. Shots are addressed by ID alone, matching
// the plugin clients.
func (h *Handler) GetShot(w http.ResponseWriter, r *http.Request) {
	resolver, _, ok := h.resolver(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	shotID := chi.URLParam(r, "id")
	ep, err := h.store.FindEpisodeByShot(r.Context(), shotID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "shot not found")
		} else {
			h.internalError(w, err, "find shot")
		}
		return
	}

	show, err := h.store.GetShow(r.Context(), ep.ShowID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		h.internalError(w, err, "load show")
		return
	}
	if !resolver.RoleForEpisode(ep, show).CanView() {
		denyPermission(w, "no access to this shot")
		return
	}

	_, _, shot, _ := ep.FindShot(shotID)
	writeJSON(w, http.StatusOK, shotResponse{EpisodeID: ep.ID, Shot: shot})
}

// updateShotRequest carries the shot fields the external API may set.
// Key names match the plugin wire format.
type updateShotRequest struct {
	Audio     *string  `json:"audio" validate:"omitempty,max=65536"`
	Visual    *string  `json:"visual" validate:"omitempty,max=65536"`
	WordCount *int     `json:"wordCount" validate:"omitempty,gte=0"`
	Runtime   *float64 `json:"runtime" validate:"omitempty,gte=0"`
}

// UpdateShot applies a partial shot update through the sync writer
// path, so external edits get the same no-op dedup and attribution as
// interactive ones.
func (h *Handler) UpdateShot(w http.ResponseWriter, r *http.Request) {
	resolver, identity, ok := h.resolver(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	var req updateShotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		writeValidationError(w, ve)
		return
	}

	shotID := chi.URLParam(r, "id")
	ep, err := h.store.FindEpisodeByShot(r.Context(), shotID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "shot not found")
		} else {
			h.internalError(w, err, "find shot")
		}
		return
	}

	show, err := h.store.GetShow(r.Context(), ep.ShowID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		h.internalError(w, err, "load show")
		return
	}
	if !resolver.RoleForEpisode(ep, show).CanEdit() {
		denyPermission(w, "editing requires the editor role")
		return
	}

	updated := ep.Clone()
	_, _, shot, _ := updated.FindShot(shotID)
	if req.Audio != nil {
		shot.Audio = *req.Audio
	}
	if req.Visual != nil {
		shot.Visual = *req.Visual
	}
	if req.WordCount != nil {
		shot.WordCount = *req.WordCount
	}
	if req.Runtime != nil {
		shot.Runtime = *req.Runtime
	}

	if err := h.commitSegments(r, identity, updated); err != nil {
		h.internalError(w, err, "commit shot update")
		return
	}
	writeJSON(w, http.StatusOK, shotResponse{EpisodeID: updated.ID, Shot: shot})
}

// updateEpisodeRequest carries the episode fields the external API may
// set.
type updateEpisodeRequest struct {
	Title    *string          `json:"title" validate:"omitempty,min=1,max=512"`
	Segments []models.Segment `json:"segments" validate:"omitempty,dive"`
}

// UpdateEpisode applies a partial episode update through the sync
// writer path.
func (h *Handler) UpdateEpisode(w http.ResponseWriter, r *http.Request) {
	resolver, identity, ok := h.resolver(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	var req updateEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid JSON body")
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		writeValidationError(w, ve)
		return
	}

	ep, show, ok := h.episodeWithShow(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !resolver.RoleForEpisode(ep, show).CanEdit() {
		denyPermission(w, "editing requires the editor role")
		return
	}

	fields := docstore.Fields{
		Title:        req.Title,
		Segments:     req.Segments,
		LastEditedBy: identity.ID,
		LastEditedAt: docstore.ServerTimestamp,
	}
	if err := h.writeThroughSession(r, identity, ep.ID, fields); err != nil {
		h.internalError(w, err, "commit episode update")
		return
	}

	updated, err := h.store.GetEpisode(r.Context(), ep.ID)
	if err != nil {
		h.internalError(w, err, "reload episode")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// imageFormFields maps multipart field names (plugin wire format) to
// shot image slots.
var imageFormFields = []struct {
	name  string
	apply func(*models.Shot, string)
}{
	{"mainImage", func(s *models.Shot, ref string) { s.MainImage = ref }},
	{"startFrame", func(s *models.Shot, ref string) { s.StartFrame = ref }},
	{"endFrame", func(s *models.Shot, ref string) { s.EndFrame = ref }},
}

// UploadShotImages accepts multipart image uploads for a shot and
// stores the blob references on it.
func (h *Handler) UploadShotImages(w http.ResponseWriter, r *http.Request) {
	resolver, identity, ok := h.resolver(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid multipart form")
		return
	}

	shotID := chi.URLParam(r, "id")
	ep, err := h.store.FindEpisodeByShot(r.Context(), shotID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "shot not found")
		} else {
			h.internalError(w, err, "find shot")
		}
		return
	}

	show, err := h.store.GetShow(r.Context(), ep.ShowID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		h.internalError(w, err, "load show")
		return
	}
	if !resolver.RoleForEpisode(ep, show).CanEdit() {
		denyPermission(w, "editing requires the editor role")
		return
	}

	updated := ep.Clone()
	_, _, shot, _ := updated.FindShot(shotID)

	stored := make(map[string]string)
	for _, field := range imageFormFields {
		file, header, err := r.FormFile(field.name)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid upload field "+field.name)
			return
		}
		ref, err := h.storeImage(r, header, file)
		file.Close()
		if err != nil {
			h.internalError(w, err, "store image")
			return
		}
		field.apply(shot, ref)
		stored[field.name] = ref
	}
	if len(stored) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "no images provided")
		return
	}

	if err := h.commitSegments(r, identity, updated); err != nil {
		h.internalError(w, err, "commit image refs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"episode_id": updated.ID,
		"shot":       shot,
		"stored":     stored,
	})
}

func (h *Handler) storeImage(r *http.Request, header *multipart.FileHeader, file multipart.File) (string, error) {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.blobs.Put(r.Context(), header.Filename, contentType, file)
}

// commitSegments writes an episode's full segment collection through
// the sync writer path with the caller's attribution.
func (h *Handler) commitSegments(r *http.Request, identity *models.Identity, ep *models.Episode) error {
	return h.writeThroughSession(r, identity, ep.ID, docstore.Fields{
		Segments:     ep.Segments,
		LastEditedBy: identity.ID,
		LastEditedAt: docstore.ServerTimestamp,
	})
}

// writeThroughSession routes one write through a short-lived sync
// session, so external edits share the no-op dedup and commit metrics
// of interactive sessions.
func (h *Handler) writeThroughSession(r *http.Request, identity *models.Identity, episodeID string, fields docstore.Fields) error {
	engine := syncengine.New(h.store, identity, h.syncCfg)
	session, err := engine.OpenSession(r.Context(), episodeID, func(*models.Episode) {}, nil)
	if err != nil {
		return err
	}
	defer session.Close()
	return session.WriteImmediately(r.Context(), fields)
}

// ListShows returns the shows visible to the caller.
func (h *Handler) ListShows(w http.ResponseWriter, r *http.Request) {
	resolver, _, ok := h.resolver(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	shows, err := h.store.ListShows(r.Context())
	if err != nil {
		h.internalError(w, err, "list shows")
		return
	}
	visible := resolver.VisibleShows(shows)
	if visible == nil {
		visible = []models.Show{}
	}
	writeJSON(w, http.StatusOK, visible)
}

// ListEpisodes returns the episodes of one show visible to the caller.
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	resolver, _, ok := h.resolver(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
		return
	}

	showID := chi.URLParam(r, "id")
	show, err := h.store.GetShow(r.Context(), showID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "show not found")
		} else {
			h.internalError(w, err, "load show")
		}
		return
	}

	episodes, err := h.store.ListEpisodes(r.Context(), showID)
	if err != nil {
		h.internalError(w, err, "list episodes")
		return
	}
	visible := resolver.VisibleEpisodes(show, episodes)
	if visible == nil {
		visible = []models.Episode{}
	}
	writeJSON(w, http.StatusOK, visible)
}

// ServeBlob streams a stored shot image back to the UI.
func (h *Handler) ServeBlob(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	rc, err := h.blobs.Open(r.Context(), ref)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, CodeNotFound, "blob not found")
		} else {
			h.internalError(w, err, "open blob")
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn().Err(err).Str("ref", ref).Msg("blob stream interrupted")
	}
}

// Healthz is the liveness endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
