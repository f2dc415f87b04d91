// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pagerduty is the HTTP client for the two PagerDuty REST endpoints
// the data provider reads: aggregate incident analytics and the incident
// listing.
//
// # Description
//
// Every call carries the token auth header and the v2 Accept header, waits
// on a client-side rate limiter, and is retried a bounded number of times
// when the API answers 429, 502, 503 or 504 or the request never reaches
// it. Any other non-2xx answer is returned at once as a *StatusError.
//
// A 2xx body is decoded and checked against the documented shape. A body
// that does not match yields a *ContractError.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package pagerduty

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives one notification per upstream attempt. status is 0
// when the request failed before a response arrived.
type Observer interface {
	ObserveUpstream(endpoint string, status int, elapsed time.Duration)
}

// Config holds the client's tunables.
type Config struct {
	BaseURL string

	// Timeout bounds each attempt when the default HTTP client is used.
	Timeout time.Duration

	// RatePerMinute caps outbound requests. Zero disables the limiter.
	RatePerMinute int

	// MaxRetries is the number of extra attempts for transient failures.
	MaxRetries int

	// RetryInitialInterval is the first backoff delay.
	RetryInitialInterval time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:              DefaultBaseURL,
		Timeout:              30 * time.Second,
		RatePerMinute:        900,
		MaxRetries:           2,
		RetryInitialInterval: 500 * time.Millisecond,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithObserver registers an attempt observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// Client talks to the PagerDuty REST API.
type Client struct {
	baseURL  string
	http     HTTPClient
	limiter  *rate.Limiter
	retry    retryPolicy
	logger   *slog.Logger
	observer Observer
}

// NewClient builds a Client. Zero-valued fields of cfg fall back to
// DefaultConfig, except RatePerMinute and MaxRetries where zero is honoured.
func NewClient(cfg Config, opts ...Option) *Client {
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = defaults.RetryInitialInterval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	limit := rate.Inf
	burst := 1
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(float64(cfg.RatePerMinute) / 60.0)
		burst = max(1, cfg.RatePerMinute/60)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, burst),
		retry: retryPolicy{
			maxRetries:      cfg.MaxRetries,
			initialInterval: cfg.RetryInitialInterval,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MeanTimeToResolve queries the trailing 28-day high-urgency aggregate for
// serviceID and returns the first bucket.
//
// # Outputs
//
//   - *StatusError when the API answers non-2xx.
//   - ErrTransport (wrapped) when no answer arrived.
//   - *ContractError when "data" is missing, not an array, or empty.
func (c *Client) MeanTimeToResolve(ctx context.Context, token, serviceID string, now time.Time) (AnalyticsAggregate, error) {
	payload, err := json.Marshal(NewAnalyticsRequest(serviceID, now))
	if err != nil {
		return AnalyticsAggregate{}, fmt.Errorf("encode analytics request: %w", err)
	}

	target := c.baseURL + "/analytics/metrics/incidents/services"
	resp, err := c.do(ctx, EndpointAnalytics, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-EARLY-ACCESS", earlyAccessValue)
		setAuth(req, token)
		return req, nil
	})
	if err != nil {
		return AnalyticsAggregate{}, err
	}
	defer resp.Body.Close()

	data, err := decodeArrayField(resp.Body, EndpointAnalytics, "data")
	if err != nil {
		return AnalyticsAggregate{}, err
	}

	elems, err := objectElements(data, EndpointAnalytics, "data")
	if err != nil {
		return AnalyticsAggregate{}, err
	}
	if len(elems) == 0 {
		return AnalyticsAggregate{}, &ContractError{Endpoint: EndpointAnalytics, Reason: "data array is empty"}
	}
	var first AnalyticsAggregate
	if err := json.Unmarshal(elems[0], &first); err != nil {
		return AnalyticsAggregate{}, &ContractError{Endpoint: EndpointAnalytics, Reason: "malformed data element: " + err.Error()}
	}
	return first, nil
}

// ListIncidents returns up to IncidentPageLimit incidents for serviceID in
// upstream order. An empty list is a valid result.
func (c *Client) ListIncidents(ctx context.Context, token, serviceID string) ([]Incident, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(IncidentPageLimit))
	q.Add("service_ids[]", serviceID)
	target := c.baseURL + "/incidents?" + q.Encode()

	resp, err := c.do(ctx, EndpointIncidents, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		setAuth(req, token)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := decodeArrayField(resp.Body, EndpointIncidents, "incidents")
	if err != nil {
		return nil, err
	}

	elems, err := objectElements(raw, EndpointIncidents, "incidents")
	if err != nil {
		return nil, err
	}
	incidents := make([]Incident, 0, len(elems))
	for _, elem := range elems {
		var inc Incident
		if err := json.Unmarshal(elem, &inc); err != nil {
			return nil, &ContractError{Endpoint: EndpointIncidents, Reason: "malformed incident: " + err.Error()}
		}
		incidents = append(incidents, inc)
	}
	return incidents, nil
}

func setAuth(req *http.Request, token string) {
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Authorization", "Token token="+token)
}

// decodeArrayField reads a JSON object from r and returns the raw value of
// field, which must be present, non-null and an array.
func decodeArrayField(r io.Reader, endpoint, field string) (json.RawMessage, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, &ContractError{Endpoint: endpoint, Reason: "body is not a JSON object: " + err.Error()}
	}
	if body == nil {
		return nil, &ContractError{Endpoint: endpoint, Reason: "body is null"}
	}
	raw, ok := body[field]
	if !ok {
		return nil, &ContractError{Endpoint: endpoint, Reason: fmt.Sprintf("missing %q field", field)}
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ContractError{Endpoint: endpoint, Reason: fmt.Sprintf("%q is not an array", field)}
	}
	return trimmed, nil
}

// objectElements splits a JSON array into its elements, each of which must
// be a JSON object. null elements are rejected.
func objectElements(raw json.RawMessage, endpoint, field string) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &ContractError{Endpoint: endpoint, Reason: fmt.Sprintf("malformed %q array: %v", field, err)}
	}
	for i, elem := range elems {
		trimmed := bytes.TrimSpace(elem)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, &ContractError{Endpoint: endpoint, Reason: fmt.Sprintf("%s[%d] is not an object", field, i)}
		}
		elems[i] = trimmed
	}
	return elems, nil
}

// do sends the request built by build, applying the rate limiter and the
// retry policy. It returns only 2xx responses; the caller closes the body.
func (c *Client) do(ctx context.Context, endpoint string, build func() (*http.Request, error)) (*http.Response, error) {
	attempt := 0
	return c.retry.run(ctx, func() (*http.Response, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, permanent(fmt.Errorf("%w: %s: %w", ErrTransport, endpoint, err))
		}

		req, err := build()
		if err != nil {
			return nil, permanent(fmt.Errorf("build %s request: %w", endpoint, err))
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		elapsed := time.Since(start)
		if err != nil {
			c.observe(endpoint, 0, elapsed)
			c.logger.Warn("pagerduty request failed",
				"endpoint", endpoint,
				"attempt", attempt,
				"error", err)
			if ctx.Err() != nil {
				return nil, permanent(fmt.Errorf("%w: %s: %w", ErrTransport, endpoint, err))
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrTransport, endpoint, err)
		}
		c.observe(endpoint, resp.StatusCode, elapsed)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.logger.Debug("pagerduty request ok",
				"endpoint", endpoint,
				"status", resp.StatusCode,
				"elapsed", elapsed)
			return resp, nil
		}

		statusErr := newStatusError(endpoint, resp)
		c.logger.Warn("pagerduty returned error status",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"attempt", attempt,
			"body", statusErr.Body)
		if retryableStatus(resp.StatusCode) {
			return nil, statusErr
		}
		return nil, permanent(statusErr)
	})
}

func (c *Client) observe(endpoint string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(endpoint, status, elapsed)
	}
}

const maxErrorBody = 512

func newStatusError(endpoint string, resp *http.Response) *StatusError {
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(snippet),
	}
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
