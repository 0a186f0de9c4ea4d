// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

// Package main is the entry point for the Concepto server.
//
// Concepto is the collaborative backend for episode production: a
// subscribable document store holds episodes, the sync engine gives
// each editor debounced echo-free propagation, and the external HTTP
// API serves the Blender and DaVinci plugins.
//
// The server initializes in the following order:
//
//  1. Configuration: layered Koanf load (defaults, YAML, CONCEPTO_* env)
//  2. Storage: BadgerDB document store over a NATS change bus
//     (embedded NATS server by default, external via bus.url)
//  3. Auth: API key manager and JWT manager
//  4. WebSocket hub: UI push channel fed by store subscriptions
//  5. GenAI client: circuit-broken generation boundary (optional)
//  6. HTTP server: chi router with the external and admin APIs
//
// All long-running components run under a suture supervisor tree and
// shut down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/projecteax/concepto-sub007/internal/api"
	"github.com/projecteax/concepto-sub007/internal/auth"
	"github.com/projecteax/concepto-sub007/internal/blob"
	"github.com/projecteax/concepto-sub007/internal/config"
	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/genai"
	"github.com/projecteax/concepto-sub007/internal/logging"
	"github.com/projecteax/concepto-sub007/internal/supervisor"
	"github.com/projecteax/concepto-sub007/internal/syncengine"
	ws "github.com/projecteax/concepto-sub007/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store_path", cfg.Store.Path).
		Bool("bus_embedded", cfg.Bus.Embedded).
		Bool("genai_enabled", cfg.GenAI.Enabled).
		Msg("Starting Concepto server")

	// Storage: Badger document database.
	badgerOpts := badger.DefaultOptions(cfg.Store.Path).WithLogger(nil)
	if cfg.Store.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open document database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing document database")
		}
	}()

	// Change bus: embedded NATS by default, external broker otherwise.
	var natsServer *docstore.EmbeddedServer
	busURL := cfg.Bus.URL
	if cfg.Bus.Embedded {
		natsServer, err = docstore.NewEmbeddedServer(docstore.EmbeddedServerConfig{
			Host: cfg.Bus.Host,
			Port: cfg.Bus.Port,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		defer natsServer.Shutdown()
		busURL = natsServer.ClientURL()
		logging.Info().Str("url", busURL).Msg("Embedded NATS server started")
	}

	bus, err := docstore.NewNATSBus(docstore.DefaultBusConfig(busURL))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect change bus")
	}

	store := docstore.Open(db, bus)
	defer store.Close()

	logger := logging.Logger()

	blobs, err := blob.NewFilesystemStore(cfg.Blob.Path, &logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize blob store")
	}

	keyManager := auth.NewKeyManager(store, cfg.Auth.BcryptCost, &logger)
	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTimeout)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	authMW := auth.NewMiddleware(jwtManager, keyManager, &logger)

	var generator genai.Generator = genai.Disabled{}
	if cfg.GenAI.Enabled {
		client, err := genai.NewClient(cfg.GenAI, &logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize generation client")
		}
		generator = client
		logging.Info().Str("base_url", cfg.GenAI.BaseURL).Msg("Generation client enabled")
	} else {
		logging.Info().Msg("Generation disabled (genai.enabled=false)")
	}

	hub := ws.NewHub(&ws.StoreSource{Store: store})

	syncCfg := syncengine.Config{
		DebounceWindow:     cfg.Sync.DebounceWindow,
		EchoSuppressWindow: cfg.Sync.EchoSuppressWindow,
		ReadinessTimeout:   cfg.Sync.ReadinessTimeout,
		OwnWriteMinHold:    cfg.Sync.OwnWriteMinHold,
		OwnWriteMaxHold:    cfg.Sync.OwnWriteMaxHold,
	}

	handler := api.NewHandler(store, blobs, keyManager, generator, syncCfg, &logger)
	router := api.NewRouter(handler, authMW, hub, cfg.Server)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if natsServer != nil {
		tree.AddStorageService(supervisor.NewNATSServerService(natsServer))
	}
	tree.AddMessagingService(supervisor.NewWebSocketHubService(hub))
	tree.AddAPIService(supervisor.NewHTTPServerService(server))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Concepto stopped gracefully")
}
