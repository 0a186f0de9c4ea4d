// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package provides metrics for:
  - Sync engine behavior (commits, coalesced writes, echo suppression)
  - Document store commit latency and errors
  - HTTP request latency and throughput
  - WebSocket connection counts
  - Generation service circuit breaker state

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8420/metrics

# Available Metrics

Sync Engine Metrics:
  - sync_commits_total: Commits by result (counter)
    Labels: result (success, failure)
  - sync_commit_duration_seconds: Commit latency (histogram)
  - sync_writes_coalesced_total: Scheduled writes superseded before commit (counter)
  - sync_writes_dropped_noop_total: Fingerprint-equal writes dropped (counter)
  - sync_snapshots_suppressed_total: Snapshots held back (counter)
    Labels: reason (own_echo, duplicate)
  - sync_snapshots_delivered_total: Snapshots delivered (counter)
    Labels: kind (baseline, foreign, unattributed)
  - sync_readiness_timeouts_total: Writes that proceeded without a baseline (counter)
  - sync_active_sessions: Open sync sessions (gauge)

Document Store Metrics:
  - store_commit_duration_seconds: Commit latency (histogram)
  - store_errors_total: Store failures (counter)
    Labels: operation (get, put, commit, scan, publish)
  - store_snapshots_published_total: Snapshots pushed on the change bus (counter)

API Metrics:
  - api_requests_total: Total requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: In-flight requests (gauge)
  - api_permission_denials_total: 403 responses from permission resolution (counter)
    Labels: endpoint

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/projecteax/concepto-sub007/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())
	    metrics.RecordAPIRequest("GET", "/api/external/episodes/{id}", "200", 23*time.Millisecond)
	}

# Cardinality Management

Endpoint labels use chi route patterns, never raw URLs, and user or episode
identifiers are never used as labels.

# Thread Safety

All metric recording functions are safe for concurrent use; the Prometheus
client library handles synchronization internally.
*/
package metrics
