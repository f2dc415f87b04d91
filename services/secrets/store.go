// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package secrets stores the opaque credentials the data provider needs.
//
// # Description
//
// A Store is a get/set/delete map of secret values. Values are never logged;
// only key names appear in log records and errors. Three backends exist:
//
//   - BadgerStore: persistent, on-disk (or in-memory for tests)
//   - EnvStore: read-only view over environment variables
//   - Chain: priority order over several backends
//
// CachedStore wraps any of them and keeps the last value read sealed in a
// memguard enclave, so the plaintext lives in locked memory only while a
// caller holds it.
//
// # Thread Safety
//
// All implementations are safe for concurrent use.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Well-known secret keys.
const (
	// KeyAPIToken is the PagerDuty REST API token.
	KeyAPIToken = "api-token"

	// KeyGatewayToken is the bearer token for the Compass GraphQL gateway.
	KeyGatewayToken = "gateway-token"
)

// Store is the external secret storage seen by the core: opaque get and set
// of a value by key.
type Store interface {
	// Get returns the value for key, or ErrSecretNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Chain reads from the first backend holding a key and writes to the first
// writable backend.
type Chain struct {
	backends []Store
	logger   *slog.Logger
}

// NewChain builds a Chain over backends in priority order.
func NewChain(logger *slog.Logger, backends ...Store) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{backends: backends, logger: logger}
}

// Get implements Store.
func (c *Chain) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	for i, b := range c.backends {
		v, err := b.Get(ctx, key)
		if err == nil {
			c.logger.Debug("secret resolved", "key", key, "backend_index", i)
			return v, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			return "", fmt.Errorf("backend %d: %w", i, err)
		}
	}
	return "", ErrSecretNotFound
}

// Set implements Store.
func (c *Chain) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	for _, b := range c.backends {
		err := b.Set(ctx, key, value)
		if errors.Is(err, ErrReadOnly) {
			continue
		}
		return err
	}
	return ErrReadOnly
}

// Delete implements Store. Read-only backends are skipped.
func (c *Chain) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	for _, b := range c.backends {
		if err := b.Delete(ctx, key); err != nil && !errors.Is(err, ErrReadOnly) {
			return err
		}
	}
	return nil
}

var _ Store = (*Chain)(nil)
