// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package genai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/projecteax/concepto-sub007/internal/config"
	"github.com/projecteax/concepto-sub007/internal/metrics"
)

// maxImageBytes bounds a single generated image response.
const maxImageBytes = 32 << 20

// Client is an HTTP Generator wrapped in a circuit breaker and a rate
// limiter. The breaker keeps a flapping generation service from
// stalling episode work; the limiter keeps us inside the upstream
// quota.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[*upstreamResult]
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// upstreamResult carries one upstream response through the breaker.
type upstreamResult struct {
	body        []byte
	contentType string
}

// NewClient creates a generation client from config. Callers should
// use Disabled{} instead when cfg.Enabled is false.
func NewClient(cfg config.GenAIConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("genai base_url is empty")
	}

	maxFails := cfg.BreakerMaxFails
	if maxFails == 0 {
		maxFails = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	log := logger.With().Str("component", "genai_client").Logger()
	metrics.GenAIBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[*upstreamResult](gobreaker.Settings{
		Name:    "genai",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("generation breaker state change")
			metrics.GenAIBreakerState.Set(stateToFloat(to))
		},
	})

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 30
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		logger:  log,
	}, nil
}

// GenerateText produces text for a prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	result, err := c.call(ctx, "/v1/generate/text", prompt)
	if err != nil {
		return "", err
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(result.body, &resp); err != nil {
		return "", fmt.Errorf("decode text response: %w", err)
	}
	return resp.Text, nil
}

// GenerateImage produces an image for a prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	result, err := c.call(ctx, "/v1/generate/image", prompt)
	if err != nil {
		return nil, "", err
	}
	return result.body, result.contentType, nil
}

// call runs one generation request through the limiter and breaker.
func (c *Client) call(ctx context.Context, path, prompt string) (*upstreamResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.cb.Execute(func() (*upstreamResult, error) {
		return c.post(ctx, path, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.GenAIRequests.WithLabelValues("rejected").Inc()
			return nil, ErrUnavailable
		}
		metrics.GenAIRequests.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.GenAIRequests.WithLabelValues("success").Inc()
	return result, nil
}

func (c *Client) post(ctx context.Context, path, prompt string) (*upstreamResult, error) {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service returned %d", resp.StatusCode)
	}

	return &upstreamResult{
		body:        body,
		contentType: resp.Header.Get("Content-Type"),
	}, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
