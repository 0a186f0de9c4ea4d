// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package genai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/projecteax/concepto-sub007/internal/config"
)

func testClient(t *testing.T, upstream *httptest.Server, maxFails uint32) *Client {
	t.Helper()
	logger := zerolog.Nop()
	client, err := NewClient(config.GenAIConfig{
		Enabled:         true,
		BaseURL:         upstream.URL,
		APIKey:          "test-key",
		Timeout:         5 * time.Second,
		RequestsPerMin:  6000, // keep the limiter out of the way
		BreakerMaxFails: maxFails,
		BreakerCooldown: time.Minute,
	}, &logger)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestGenerateText(t *testing.T) {
	var gotAuth atomic.Value
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		if r.URL.Path != "/v1/generate/text" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"a cold open in the server room"}`))
	}))
	defer upstream.Close()

	client := testClient(t, upstream, 5)
	text, err := client.GenerateText(context.Background(), "write a cold open")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "a cold open in the server room" {
		t.Errorf("text = %q", text)
	}
	if auth, _ := gotAuth.Load().(string); auth != "Bearer test-key" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestGenerateImage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate/image" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png bytes"))
	}))
	defer upstream.Close()

	client := testClient(t, upstream, 5)
	data, contentType, err := client.GenerateImage(context.Background(), "wide shot of the studio")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(data) != "png bytes" || contentType != "image/png" {
		t.Errorf("got %q / %q", data, contentType)
	}
}

func TestUpstreamErrorSurfaces(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	client := testClient(t, upstream, 5)
	if _, err := client.GenerateText(context.Background(), "p"); err == nil {
		t.Error("expected error from failing upstream")
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	client := testClient(t, upstream, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := client.GenerateText(ctx, "p"); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}

	// Breaker is now open: rejected without reaching upstream.
	before := calls.Load()
	if _, err := client.GenerateText(ctx, "p"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if calls.Load() != before {
		t.Error("open breaker still forwarded the request upstream")
	}
}

func TestDisabledGenerator(t *testing.T) {
	var g Generator = Disabled{}

	if _, err := g.GenerateText(context.Background(), "p"); !errors.Is(err, ErrDisabled) {
		t.Errorf("GenerateText = %v, want ErrDisabled", err)
	}
	if _, _, err := g.GenerateImage(context.Background(), "p"); !errors.Is(err, ErrDisabled) {
		t.Errorf("GenerateImage = %v, want ErrDisabled", err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	logger := zerolog.Nop()
	if _, err := NewClient(config.GenAIConfig{}, &logger); err == nil {
		t.Error("expected error for empty base URL")
	}
}
