// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Sync engine behavior (commits, coalescing, echo suppression)
// - Document store commit latency
// - API endpoint latency and throughput
// - WebSocket connections
// - Generation service circuit breaker

var (
	// Sync Engine Metrics
	SyncCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_commits_total",
			Help: "Total number of sync engine commits",
		},
		[]string{"result"}, // "success", "failure"
	)

	SyncCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_commit_duration_seconds",
			Help:    "Duration of sync engine commits in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncWritesCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_writes_coalesced_total",
			Help: "Total number of scheduled writes superseded before commit",
		},
	)

	SyncWritesDroppedNoOp = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_writes_dropped_noop_total",
			Help: "Total number of fingerprint-equal writes dropped without a commit",
		},
	)

	SyncSnapshotsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_snapshots_suppressed_total",
			Help: "Total number of incoming snapshots suppressed before delivery",
		},
		[]string{"reason"}, // "own_echo", "duplicate"
	)

	SyncSnapshotsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_snapshots_delivered_total",
			Help: "Total number of snapshots delivered to session callbacks",
		},
		[]string{"kind"}, // "baseline", "foreign", "unattributed"
	)

	SyncReadinessTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_readiness_timeouts_total",
			Help: "Total number of writes that proceeded without a baseline snapshot",
		},
	)

	SyncActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_active_sessions",
			Help: "Current number of open sync sessions",
		},
	)

	// Document Store Metrics
	StoreCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "store_commit_duration_seconds",
			Help:    "Duration of document store commits in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of document store errors",
		},
		[]string{"operation"}, // "get", "put", "commit", "scan", "publish"
	)

	StoreSnapshotsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_snapshots_published_total",
			Help: "Total number of committed snapshots published on the change bus",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIPermissionDenials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_permission_denials_total",
			Help: "Total number of requests rejected by permission resolution",
		},
	)

	// Auth Metrics
	AuthValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_validations_total",
			Help: "Total number of credential validation attempts",
		},
		[]string{"scheme", "result"}, // scheme: "api_key", "jwt"; result: "ok", "invalid"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Total number of WebSocket messages dropped on slow clients",
		},
	)

	// Generation Service Metrics
	GenAIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_requests_total",
			Help: "Total number of requests through the generation client",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	GenAIBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genai_circuit_breaker_state",
			Help: "Generation client circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordCommit records one sync engine commit and its duration.
func RecordCommit(duration time.Duration, err error) {
	SyncCommitDuration.Observe(duration.Seconds())
	if err != nil {
		SyncCommitsTotal.WithLabelValues("failure").Inc()
	} else {
		SyncCommitsTotal.WithLabelValues("success").Inc()
	}
}

// RecordSuppressed records a snapshot held back before delivery.
func RecordSuppressed(reason string) {
	SyncSnapshotsSuppressed.WithLabelValues(reason).Inc()
}

// RecordDelivered records a snapshot handed to a session callback.
func RecordDelivered(kind string) {
	SyncSnapshotsDelivered.WithLabelValues(kind).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAuthValidation records one credential validation attempt.
func RecordAuthValidation(scheme string, ok bool) {
	result := "ok"
	if !ok {
		result = "invalid"
	}
	AuthValidations.WithLabelValues(scheme, result).Inc()
}
