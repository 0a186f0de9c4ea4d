// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

/*
Package supervisor provides process supervision for Concepto using suture v4.

This package implements a hierarchical supervisor tree that manages the lifecycle
of all long-running services in the application. It provides Erlang/OTP-style
supervision with automatic restart, failure isolation, and graceful shutdown.

# Overview

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("concepto")
	├── StorageSupervisor ("storage-layer")
	│   └── NATSServerService (embedded change bus server)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

This hierarchy ensures that:
  - A crash in the WebSocket hub doesn't affect HTTP reads and commits
  - Bus server restarts don't take the API down
  - Each layer can restart independently

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Event hooks via the sutureslog adapter; the slog logger is backed
    by the zerolog global through internal/logging

# Usage Example

Basic setup in main.go:

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddStorageService(supervisor.NewNATSServerService(natsServer))
	tree.AddMessagingService(supervisor.NewWebSocketHubService(hub))
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer))

	if err := tree.Serve(ctx); err != nil {
	    logging.Error().Err(err).Msg("supervisor stopped")
	}

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# What Is NOT Supervised

BadgerDB is intentionally not supervised:
  - It's an embedded library, not a long-running service
  - The document store owns open/close; a Badger fault needs a process
    restart anyway

Sync sessions are not supervised either: each session belongs to one
authenticated client connection and dies with it.

# See Also

  - github.com/thejerf/suture/v4: Underlying library
  - internal/websocket: The hub service
  - internal/docstore: The embedded NATS server
*/
package supervisor
