// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compass calls the Compass GraphQL gateway. The only operation used
// is synchronizeLinkAssociations, which asks Compass to re-resolve the links
// between its components and the data provider's services.
package compass

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	graphql "github.com/hasura/go-graphql-client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SyncInput keys a link-association synchronization.
type SyncInput struct {
	CloudID    string `json:"cloudId"`
	ForgeAppID string `json:"forgeAppId"`
}

// SynchronizeLinkAssociationsInput is SyncInput under its GraphQL input
// type name, which the client derives from the Go type name.
type SynchronizeLinkAssociationsInput SyncInput

// SyncErrorExtensions carries the machine-readable part of a mutation error.
type SyncErrorExtensions struct {
	StatusCode *int   `json:"statusCode,omitempty"`
	ErrorType  string `json:"errorType,omitempty"`
}

// SyncError is one mutation-level error.
type SyncError struct {
	Message    string               `json:"message"`
	Extensions *SyncErrorExtensions `json:"extensions,omitempty"`
}

// SyncResult is the mutation payload. It is serialized verbatim into the
// web-trigger body.
type SyncResult struct {
	Success bool        `json:"success"`
	Errors  []SyncError `json:"errors"`
}

// Gateway is the synchronization capability the sync trigger depends on.
type Gateway interface {
	SynchronizeLinkAssociations(ctx context.Context, in SyncInput) (SyncResult, error)
}

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource returns the bearer token for the gateway. An empty token
// sends the request unauthenticated.
type TokenSource func(ctx context.Context) (string, error)

// OperationName is sent with every mutation.
const OperationName = "synchronizeLinkAssociations"

type synchronizeMutation struct {
	Compass *struct {
		SynchronizeLinkAssociations *SyncResult `graphql:"synchronizeLinkAssociations(input: $input)"`
	}
}

// Client is a Gateway over HTTP.
type Client struct {
	url    string
	http   HTTPClient
	token  TokenSource
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource sets the bearer token source.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a gateway client posting to gatewayURL.
func NewClient(gatewayURL string, opts ...Option) *Client {
	c := &Client{
		url: gatewayURL,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SynchronizeLinkAssociations runs the mutation. A mutation that ran but
// reported success=false is returned as a result, not an error.
func (c *Client) SynchronizeLinkAssociations(ctx context.Context, in SyncInput) (SyncResult, error) {
	if c.url == "" {
		return SyncResult{}, ErrNoGatewayURL
	}
	if in.CloudID == "" {
		return SyncResult{}, ErrMissingCloudID
	}
	if in.ForgeAppID == "" {
		return SyncResult{}, ErrMissingAppID
	}

	doer := &bearerDoer{next: c.http}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return SyncResult{}, fmt.Errorf("gateway token: %w", err)
		}
		doer.token = token
	}

	var m synchronizeMutation
	vars := map[string]interface{}{
		"input": SynchronizeLinkAssociationsInput(in),
	}

	c.logger.Debug("synchronizing link associations", "cloud_id", in.CloudID)
	err := graphql.NewClient(c.url, doer).Mutate(ctx, &m, vars, graphql.OperationName(OperationName))
	if err != nil {
		return SyncResult{}, doer.classify(err)
	}

	if m.Compass == nil || m.Compass.SynchronizeLinkAssociations == nil {
		return SyncResult{}, ErrEmptyResponse
	}
	result := *m.Compass.SynchronizeLinkAssociations
	if result.Errors == nil {
		result.Errors = []SyncError{}
	}
	return result, nil
}

// bearerDoer adds the auth header and remembers the answer's status and,
// for non-2xx answers, its body. It serves a single mutation.
type bearerDoer struct {
	next   HTTPClient
	token  string
	status int
	body   []byte
}

const maxErrorBody = 64 << 10

func (d *bearerDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}
	resp, err := d.next.Do(req)
	if err != nil {
		return nil, err
	}
	d.status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(d.body))
	}
	return resp, nil
}

// classify maps a Mutate error to a transport error, a *GatewayError for
// non-2xx answers and GraphQL errors, or a decode error.
func (d *bearerDoer) classify(err error) error {
	switch {
	case d.status == 0:
		return fmt.Errorf("call gateway: %w", err)
	case d.status < 200 || d.status >= 300:
		return &GatewayError{StatusCode: d.status, Messages: bodyMessages(d.body)}
	}
	var gqlErrs graphql.Errors
	if errors.As(err, &gqlErrs) {
		msgs := make([]string, 0, len(gqlErrs))
		for _, e := range gqlErrs {
			msgs = append(msgs, e.Message)
		}
		return &GatewayError{StatusCode: d.status, Messages: msgs}
	}
	return fmt.Errorf("decode gateway response: %w", err)
}

// bodyMessages pulls GraphQL error messages out of a non-2xx body, if it
// has any.
func bodyMessages(body []byte) []string {
	var decoded struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}
	msgs := make([]string, 0, len(decoded.Errors))
	for _, e := range decoded.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}
