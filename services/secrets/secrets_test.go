// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package secrets

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore is an in-memory Store that records backend reads.
type countingStore struct {
	mu       sync.Mutex
	values   map[string]string
	gets     int
	readOnly bool
	getErr   error
}

func newCountingStore() *countingStore {
	return &countingStore{values: map[string]string{}}
}

func (s *countingStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func (s *countingStore) Set(_ context.Context, key, value string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *countingStore) Delete(_ context.Context, key string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func openInMemory(t *testing.T, logger *slog.Logger) *BadgerStore {
	t.Helper()
	store, err := OpenBadgerStore(BadgerConfig{InMemory: true, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openInMemory(t, nil)

	_, err := store.Get(ctx, KeyAPIToken)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, store.Set(ctx, KeyAPIToken, "u+token"))
	got, err := store.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "u+token", got)

	require.NoError(t, store.Set(ctx, KeyAPIToken, "u+rotated"))
	got, err = store.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "u+rotated", got)

	require.NoError(t, store.Delete(ctx, KeyAPIToken))
	_, err = store.Get(ctx, KeyAPIToken)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestBadgerStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenBadgerStore(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyAPIToken, "persisted"))
	require.NoError(t, store.Close())

	reopened, err := OpenBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestBadgerStore_EmptyValueIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := openInMemory(t, nil)

	require.NoError(t, store.Set(ctx, KeyAPIToken, ""))
	_, err := store.Get(ctx, KeyAPIToken)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestBadgerStore_NeverLogsValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := openInMemory(t, logger)

	require.NoError(t, store.Set(context.Background(), KeyAPIToken, "very-secret-value"))

	assert.Contains(t, buf.String(), KeyAPIToken)
	assert.NotContains(t, buf.String(), "very-secret-value")
}

func TestBadgerStore_Validation(t *testing.T) {
	_, err := OpenBadgerStore(BadgerConfig{})
	assert.Error(t, err)

	store := openInMemory(t, nil)
	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Get(ctx, KeyAPIToken)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()
	t.Setenv("PAGERDUTY_API_TOKEN", "from-env")
	t.Setenv("COMPASS_API_TOKEN", "")

	store := NewEnvStore(nil)

	got, err := store.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	_, err = store.Get(ctx, KeyGatewayToken)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = store.Get(ctx, "unmapped")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	assert.ErrorIs(t, store.Set(ctx, KeyAPIToken, "x"), ErrReadOnly)
	assert.ErrorIs(t, store.Delete(ctx, KeyAPIToken), ErrReadOnly)
}

func TestChain_PriorityAndWrites(t *testing.T) {
	ctx := context.Background()
	env := newCountingStore()
	env.readOnly = true
	env.values[KeyAPIToken] = "env-token"
	disk := newCountingStore()

	chain := NewChain(nil, disk, env)

	got, err := chain.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "env-token", got)

	require.NoError(t, chain.Set(ctx, KeyAPIToken, "disk-token"))
	got, err = chain.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "disk-token", got)

	require.NoError(t, chain.Delete(ctx, KeyAPIToken))
	got, err = chain.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "env-token", got, "read-only backend keeps its value")

	_, err = chain.Get(ctx, KeyGatewayToken)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestChain_BackendErrorStopsLookup(t *testing.T) {
	failing := newCountingStore()
	failing.getErr = errors.New("disk on fire")
	fallback := newCountingStore()
	fallback.values[KeyAPIToken] = "unused"

	_, err := NewChain(nil, failing, fallback).Get(context.Background(), KeyAPIToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, 0, fallback.gets)
}

func TestChain_AllReadOnly(t *testing.T) {
	ro := newCountingStore()
	ro.readOnly = true
	assert.ErrorIs(t, NewChain(nil, ro).Set(context.Background(), KeyAPIToken, "x"), ErrReadOnly)
}

func TestCachedStore_ServesFromEnclave(t *testing.T) {
	ctx := context.Background()
	backend := newCountingStore()
	backend.values[KeyAPIToken] = "cached-token"
	cache := NewCachedStore(backend)

	for i := 0; i < 3; i++ {
		got, err := cache.Get(ctx, KeyAPIToken)
		require.NoError(t, err)
		assert.Equal(t, "cached-token", got)
	}
	assert.Equal(t, 1, backend.gets)
}

func TestCachedStore_SetInvalidates(t *testing.T) {
	ctx := context.Background()
	backend := newCountingStore()
	cache := NewCachedStore(backend)

	_, err := cache.Get(ctx, KeyAPIToken)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, cache.Set(ctx, KeyAPIToken, "first"))
	got, err := cache.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	require.NoError(t, cache.Set(ctx, KeyAPIToken, "second"))
	got, err = cache.Get(ctx, KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	require.NoError(t, cache.Delete(ctx, KeyAPIToken))
	_, err = cache.Get(ctx, KeyAPIToken)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestCachedStore_Purge(t *testing.T) {
	ctx := context.Background()
	backend := newCountingStore()
	backend.values[KeyAPIToken] = "v"
	cache := NewCachedStore(backend)

	_, _ = cache.Get(ctx, KeyAPIToken)
	cache.Purge()
	_, _ = cache.Get(ctx, KeyAPIToken)
	assert.Equal(t, 2, backend.gets)
}

func TestCachedStore_ConcurrentGets(t *testing.T) {
	ctx := context.Background()
	backend := newCountingStore()
	backend.values[KeyAPIToken] = "shared"
	cache := NewCachedStore(backend)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.Get(ctx, KeyAPIToken)
			assert.NoError(t, err)
			assert.Equal(t, "shared", got)
		}()
	}
	wg.Wait()
}
