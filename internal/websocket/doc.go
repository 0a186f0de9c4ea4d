// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

/*
Package websocket pushes committed episode changes to connected UI clients.

This package implements WebSocket support for broadcasting full episode
snapshots to frontend clients watching an episode. It uses the
gorilla/websocket library with a hub-client architecture.

Key Components:

  - Hub: Central broker managing client connections, per-episode
    subscriptions and the upstream change feeds
  - Client: A single WebSocket connection with read/write goroutines
  - feed: One reference-counted change subscription per watched episode

Architecture:

The hub owns one upstream subscription per watched episode and fans its
snapshots out to the clients subscribed to that episode:

	┌────────────┐     ┌──────────┐
	│  docstore  │ ──► │   Hub    │
	└────────────┘     └────┬─────┘
	                        │ (filtered by episode)
	              ┌─────────┼─────────┐
	              │         │         │
	           Client1   Client2   Client3

Each client has two goroutines:
  - readPump: Reads control messages (ping, subscribe, unsubscribe)
  - writePump: Writes snapshots and keepalive pings

Message Types:

  - subscribe / unsubscribe: client control, payload {"episode_id": "..."}
  - episode_changed: full committed snapshot, payload {"episode": {...}}
  - ping / pong: application-level keepalive
  - error: delivery failures (e.g. subscription to a missing episode)

Note the hub broadcasts every committed snapshot that reaches the change
bus, including a client's own commits; echo suppression is a sync engine
concern and applies only to plugin sessions, not to the UI feed.

Connection Lifecycle:

 1. Client connects via HTTP upgrade (internal/api, authentication there)
 2. Hub registers client
 3. Client subscribes to the episodes it displays
 4. Hub opens a change feed per episode on first watcher, cancels on last
 5. Client disconnects; hub unregisters it and releases its feeds

Thread Safety:

All subscription state is owned by the hub's RunWithContext goroutine;
channels coordinate the client goroutines. A slow client whose send
buffer fills is disconnected rather than allowed to stall the hub.

See Also:

  - github.com/gorilla/websocket: Underlying WebSocket library
  - internal/docstore: The change feed source
  - internal/api: WebSocket endpoint handler
*/
package websocket
