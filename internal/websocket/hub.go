// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/projecteax/concepto-sub007/internal/logging"
	"github.com/projecteax/concepto-sub007/internal/metrics"
	"github.com/projecteax/concepto-sub007/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
// This enables clear observability in logs and metrics.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	// This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
	MessageTypeSubscribe      = "subscribe"
	MessageTypeUnsubscribe    = "unsubscribe"
	MessageTypeEpisodeChanged = "episode_changed"
	MessageTypeError          = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`

	// episodeID scopes delivery to clients subscribed to that episode.
	// Empty means broadcast to every client. Not serialized.
	episodeID string
}

// SubscribeData is the payload of subscribe/unsubscribe messages.
type SubscribeData struct {
	EpisodeID string `json:"episode_id"`
}

// EpisodeChangedData is the payload of episode_changed messages: the
// full committed snapshot, last-writer-wins at episode granularity.
type EpisodeChangedData struct {
	Episode *models.Episode `json:"episode"`
}

// subscription is a client's request to start or stop receiving change
// notifications for one episode.
type subscription struct {
	client    *Client
	episodeID string
	add       bool
}

// ChangeSource opens live per-episode snapshot feeds. Implemented by
// docstore.Store via the feed adapter.
type ChangeSource interface {
	Subscribe(ctx context.Context, episodeID string, onSnapshot func(*models.Episode), onError func(error)) (func(), error)
}

// Hub maintains the set of active clients, their episode subscriptions
// and the upstream change feeds, and routes change notifications to the
// clients watching each episode.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	subscribe  chan subscription
	mu         sync.RWMutex

	source ChangeSource
	feeds  map[string]*feed
}

// NewHub creates a new Hub. source may be nil in tests that drive the
// hub with BroadcastEpisodeChanged directly.
func NewHub(source ChangeSource) *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		subscribe:  make(chan subscription, 64),
		clients:    make(map[*Client]bool),
		source:     source,
		feeds:      make(map[string]*feed),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled:
//  1. All upstream change feeds are canceled
//  2. All connected clients are gracefully closed
//  3. The method returns ctx.Err()
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister/subscriptions)
// - Priority 3: Broadcast messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		case sub := <-h.subscribe:
			h.handleSubscription(ctx, sub)
			continue
		default:
		}

		// Priority 3: Handle broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case sub := <-h.subscribe:
			h.handleSubscription(ctx, sub)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Inc()
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	metrics.WSConnections.Dec()
	for episodeID := range client.episodes {
		h.releaseFeed(episodeID)
	}
	client.episodes = nil
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// handleSubscription updates a client's episode set and opens or
// releases the upstream change feed accordingly.
func (h *Hub) handleSubscription(ctx context.Context, sub subscription) {
	h.mu.RLock()
	connected := h.clients[sub.client]
	h.mu.RUnlock()
	if !connected {
		return
	}

	if sub.add {
		if _, ok := sub.client.episodes[sub.episodeID]; ok {
			return
		}
		if err := h.acquireFeed(ctx, sub.episodeID); err != nil {
			logging.Error().Err(err).Str("episode_id", sub.episodeID).Msg("failed to open change feed")
			select {
			case sub.client.send <- Message{Type: MessageTypeError, Data: map[string]string{"episode_id": sub.episodeID, "error": "subscription failed"}}:
			default:
			}
			return
		}
		sub.client.episodes[sub.episodeID] = struct{}{}
		logging.Debug().Str("episode_id", sub.episodeID).Msg("websocket client subscribed")
		return
	}

	if _, ok := sub.client.episodes[sub.episodeID]; !ok {
		return
	}
	delete(sub.client.episodes, sub.episodeID)
	h.releaseFeed(sub.episodeID)
	logging.Debug().Str("episode_id", sub.episodeID).Msg("websocket client unsubscribed")
}

// logGracefulShutdown closes feeds and clients and logs structured
// shutdown information. ctx.Err() is NOT logged as an error because
// context cancellation is expected behavior during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()

	for episodeID, f := range h.feeds {
		f.cancel()
		delete(h.feeds, episodeID)
	}
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// broadcastToClients sends a message to all subscribed clients in a
// deterministic order.
// DETERMINISM: Sorts clients by ID to ensure consistent iteration order.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	// Track clients to remove (can't modify map during iteration)
	var toRemove []*Client

	for _, client := range clients {
		if message.episodeID != "" {
			if _, ok := client.episodes[message.episodeID]; !ok {
				continue
			}
		}
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			// Channel full, client too slow: mark for removal
			metrics.WSMessagesDropped.Inc()
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
		for episodeID := range client.episodes {
			h.releaseFeed(episodeID)
		}
		client.episodes = nil
	}
}

// closeAllClients gracefully closes all connected WebSocket clients.
// DETERMINISM: Closes clients in ID order for consistent shutdown behavior.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
	}
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// BroadcastEpisodeChanged routes a committed snapshot to the clients
// subscribed to its episode.
func (h *Hub) BroadcastEpisodeChanged(ep *models.Episode) {
	message := Message{
		Type:      MessageTypeEpisodeChanged,
		Data:      EpisodeChangedData{Episode: ep},
		episodeID: ep.ID,
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("episode_id", ep.ID).Msg("broadcast channel full, dropping episode_changed message")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
