// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/projecteax/concepto-sub007/internal/auth"
	"github.com/projecteax/concepto-sub007/internal/config"
	"github.com/projecteax/concepto-sub007/internal/websocket"
)

// Router assembles the HTTP surface.
type Router struct {
	handler *Handler
	authMW  *auth.Middleware
	hub     *websocket.Hub
	cfg     config.ServerConfig
}

// NewRouter creates the router.
func NewRouter(handler *Handler, authMW *auth.Middleware, hub *websocket.Hub, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, authMW: authMW, hub: hub, cfg: cfg}
}

// Setup wires all routes and middleware and returns the root handler.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Unauthenticated surface: liveness and the metrics scrape.
	r.Get("/healthz", rt.handler.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// External API for plugin clients (Blender, DaVinci).
	r.Route("/api/external", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))
		r.Use(requestMetrics)
		r.Use(rt.authMW.Authenticate)

		r.Get("/shows", rt.handler.ListShows)
		r.Get("/shows/{id}/episodes", rt.handler.ListEpisodes)
		r.Get("/episodes/{id}", rt.handler.GetEpisode)
		r.Put("/episodes/{id}", rt.handler.UpdateEpisode)
		r.Get("/shots/{id}", rt.handler.GetShot)
		r.Put("/shots/{id}", rt.handler.UpdateShot)
		r.Post("/shots/{id}/images", rt.handler.UploadShotImages)
		r.Post("/generate", rt.handler.Generate)
	})

	// Grant and identity administration.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))
		r.Use(requestMetrics)
		r.Use(rt.authMW.Authenticate)
		r.Use(auth.RequireAdmin)

		r.Post("/grants", rt.handler.CreateGrant)
		r.Delete("/grants", rt.handler.DeleteGrant)
		r.Post("/identities", rt.handler.CreateIdentity)
		r.Put("/identities/{id}/role", rt.handler.PromoteIdentity)
		r.Post("/identities/{id}/keys", rt.handler.IssueAPIKey)
		r.Delete("/keys/{id}", rt.handler.RevokeAPIKey)
	})

	// Authenticated media and UI push channel.
	r.Group(func(r chi.Router) {
		r.Use(rt.authMW.Authenticate)
		r.Get("/blobs/{ref}", rt.handler.ServeBlob)
		r.Get("/ws", WebSocketHandler(rt.hub, rt.cfg.CORSOrigins))
	})

	return r
}
