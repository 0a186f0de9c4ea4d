// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/projecteax/concepto-sub007/internal/websocket"
)

// wsUpgrader upgrades UI connections. Cross-origin policy is already
// enforced by the CORS middleware; browsers send the Origin header on
// websocket upgrades too, so mirror the configured origins here.
func wsUpgrader(allowedOrigins []string) *gorilla.Upgrader {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}
	return &gorilla.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin header.
			return origin == "" || allowed[origin]
		},
	}
}

// WebSocketHandler returns the /ws upgrade handler, registering each
// accepted connection with the hub.
func WebSocketHandler(hub *websocket.Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := wsUpgrader(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			return
		}
		client := websocket.NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}
}
