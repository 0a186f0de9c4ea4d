// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/projecteax/concepto-sub007/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB; client messages are tiny control frames
)

// clientIDCounter generates unique, monotonically increasing IDs for clients.
// DETERMINISM: This ensures clients can be sorted in a consistent order for
// broadcast operations, eliminating non-deterministic map iteration order.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// id is a unique identifier for this client, used for deterministic ordering.
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	// episodes is the set of episode IDs this client watches. Owned by
	// the hub loop; never touched from the client's own goroutines.
	episodes map[string]struct{}
}

// NewClient creates a new Client with a unique deterministic ID
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		send:     make(chan Message, 256),
		episodes: make(map[string]struct{}),
	}
}

// ID returns the client's unique identifier for deterministic ordering
func (c *Client) ID() uint64 {
	return c.id
}

// readPump pumps control messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}

		switch msg.Type {
		case MessageTypePing:
			select {
			case c.send <- Message{Type: MessageTypePong}:
			default:
			}

		case MessageTypeSubscribe, MessageTypeUnsubscribe:
			data, err := decodeSubscribeData(msg.Data)
			if err != nil || data.EpisodeID == "" {
				logging.Warn().Err(err).Str("message_type", msg.Type).Msg("malformed subscription message")
				continue
			}
			select {
			case c.hub.subscribe <- subscription{client: c, episodeID: data.EpisodeID, add: msg.Type == MessageTypeSubscribe}:
			default:
				logging.Warn().Str("episode_id", data.EpisodeID).Msg("subscription channel full, dropping request")
			}
		}
	}
}

// decodeSubscribeData re-decodes the loosely typed message payload.
func decodeSubscribeData(data interface{}) (SubscribeData, error) {
	var out SubscribeData
	raw, err := json.Marshal(data)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
