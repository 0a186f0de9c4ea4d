// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Concepto server.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Bus     BusConfig     `koanf:"bus"`
	Sync    SyncConfig    `koanf:"sync"`
	Auth    AuthConfig    `koanf:"auth"`
	Blob    BlobConfig    `koanf:"blob"`
	GenAI   GenAIConfig   `koanf:"genai"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// StoreConfig configures the Badger-backed document store.
type StoreConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// BusConfig configures the change bus and its embedded NATS server.
type BusConfig struct {
	Embedded bool   `koanf:"embedded"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	URL      string `koanf:"url"`
}

// SyncConfig names the sync engine timing windows. See
// syncengine.Config for the semantics of each knob.
type SyncConfig struct {
	DebounceWindow     time.Duration `koanf:"debounce_window"`
	EchoSuppressWindow time.Duration `koanf:"echo_suppress_window"`
	ReadinessTimeout   time.Duration `koanf:"readiness_timeout"`
	OwnWriteMinHold    time.Duration `koanf:"own_write_min_hold"`
	OwnWriteMaxHold    time.Duration `koanf:"own_write_max_hold"`
}

// AuthConfig configures API key and JWT authentication.
type AuthConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	BcryptCost     int           `koanf:"bcrypt_cost"`
}

// BlobConfig configures shot image storage.
type BlobConfig struct {
	Path string `koanf:"path"`
}

// GenAIConfig configures the generation service client boundary.
type GenAIConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BaseURL         string        `koanf:"base_url"`
	APIKey          string        `koanf:"api_key"`
	Timeout         time.Duration `koanf:"timeout"`
	RequestsPerMin  int           `koanf:"requests_per_min"`
	BreakerMaxFails uint32        `koanf:"breaker_max_fails"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// LoggingConfig configures the zerolog global.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8420,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Store: StoreConfig{
			Path:     "/data/concepto",
			InMemory: false,
		},
		Bus: BusConfig{
			Embedded: true,
			Host:     "127.0.0.1",
			Port:     0, // random free port
			URL:      "",
		},
		Sync: SyncConfig{
			DebounceWindow:     10 * time.Second,
			EchoSuppressWindow: 1 * time.Second,
			ReadinessTimeout:   1 * time.Second,
			OwnWriteMinHold:    500 * time.Millisecond,
			OwnWriteMaxHold:    2 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:      "",
			SessionTimeout: 24 * time.Hour,
			BcryptCost:     12,
		},
		Blob: BlobConfig{
			Path: "/data/concepto/blobs",
		},
		GenAI: GenAIConfig{
			Enabled:         false,
			BaseURL:         "",
			APIKey:          "",
			Timeout:         60 * time.Second,
			RequestsPerMin:  30,
			BreakerMaxFails: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks cross-field constraints the type system can't.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if !c.Bus.Embedded && c.Bus.URL == "" {
		return fmt.Errorf("bus.url is required when bus.embedded is false")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes, got %d", len(c.Auth.JWTSecret))
	}
	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost %d out of range [10, 31]", c.Auth.BcryptCost)
	}
	if c.Sync.OwnWriteMinHold > c.Sync.OwnWriteMaxHold {
		return fmt.Errorf("sync.own_write_min_hold exceeds sync.own_write_max_hold")
	}
	if c.GenAI.Enabled && c.GenAI.BaseURL == "" {
		return fmt.Errorf("genai.base_url is required when genai.enabled is set")
	}
	return nil
}
