// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/projecteax/concepto-sub007/internal/docstore"
	"github.com/projecteax/concepto-sub007/internal/logging"
	"github.com/projecteax/concepto-sub007/internal/websocket"
)

// HTTPServerService adapts an http.Server to suture.Service. Serve
// blocks until the context is canceled, then shuts the server down
// with a bounded grace period.
type HTTPServerService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server for supervision.
func NewHTTPServerService(server *http.Server) *HTTPServerService {
	return &HTTPServerService{server: server, shutdownTimeout: 10 * time.Second}
}

func (s *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.server.Addr).Msg("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("http server shutdown failed")
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *HTTPServerService) String() string { return "http-server" }

// WebSocketHubService adapts the websocket hub to suture.Service.
type WebSocketHubService struct {
	hub *websocket.Hub
}

// NewWebSocketHubService wraps hub for supervision.
func NewWebSocketHubService(hub *websocket.Hub) *WebSocketHubService {
	return &WebSocketHubService{hub: hub}
}

func (s *WebSocketHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *WebSocketHubService) String() string { return "websocket-hub" }

// NATSServerService supervises the embedded change bus server. The
// server is already started when this wrapper is created; Serve watches
// health and shuts it down on context cancellation.
type NATSServerService struct {
	server *docstore.EmbeddedServer
}

// NewNATSServerService wraps server for supervision.
func NewNATSServerService(server *docstore.EmbeddedServer) *NATSServerService {
	return &NATSServerService{server: server}
}

func (s *NATSServerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.server.Shutdown()
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				return errors.New("embedded NATS server stopped unexpectedly")
			}
		}
	}
}

func (s *NATSServerService) String() string { return "nats-server" }
