// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package docstore

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServerConfig configures the in-process NATS server.
type EmbeddedServerConfig struct {
	Host string
	Port int
}

// EmbeddedServer wraps an in-process NATS server with lifecycle
// management, so single-instance deployments need no external broker.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server. Change
// notifications are ephemeral pushes, so JetStream stays disabled.
// Returns an error if the server is not ready within 30 seconds.
func NewEmbeddedServer(cfg EmbeddedServerConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "concepto-changes",
		Host:       cfg.Host,
		Port:       cfg.Port,
		JetStream:  false,
		NoLog:      true,
		MaxPayload: 8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for bus clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server and waits for it to finish.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}

// IsRunning reports server health.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}
