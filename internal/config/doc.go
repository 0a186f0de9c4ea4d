// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

/*
Package config loads the server configuration from layered sources using
Koanf v2.

Precedence, lowest to highest:

 1. Built-in defaults (defaultConfig)
 2. YAML config file (first of CONCEPTO_CONFIG_PATH, ./config.yaml,
    ./config.yml, /etc/concepto/config.{yaml,yml})
 3. CONCEPTO_* environment variables

Example config.yaml:

	server:
	  port: 8420
	  cors_origins: ["https://studio.example.com"]
	sync:
	  debounce_window: 10s
	  echo_suppress_window: 1s
	auth:
	  jwt_secret: "change-me-to-a-32-byte-or-longer-secret"

Environment overrides use a section-prefixed flat form:

	CONCEPTO_SERVER_PORT=9000
	CONCEPTO_SYNC_DEBOUNCE_WINDOW=5s
	CONCEPTO_AUTH_JWT_SECRET=...

Validation runs on every load and fails fast on misconfiguration, so a
server never starts with, for example, an empty JWT secret.
*/
package config
