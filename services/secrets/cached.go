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
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
)

// CachedStore keeps values read from an underlying Store sealed in memguard
// enclaves. A value is decrypted into locked memory only for the duration of
// a Get and the returned string is a copy.
//
// Set and Delete write through and invalidate the cached entry.
type CachedStore struct {
	backend Store

	mu       sync.RWMutex
	enclaves map[string]*memguard.Enclave
}

// NewCachedStore wraps backend.
func NewCachedStore(backend Store) *CachedStore {
	return &CachedStore{
		backend:  backend,
		enclaves: make(map[string]*memguard.Enclave),
	}
}

// Get implements Store. "Not found" is not cached, so a token stored later
// through another process is picked up on the next call.
func (c *CachedStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	c.mu.RLock()
	enclave, ok := c.enclaves[key]
	c.mu.RUnlock()
	if ok {
		if v, err := open(enclave); err == nil {
			return v, nil
		}
		c.invalidate(key)
	}

	v, err := c.backend.Get(ctx, key)
	if err != nil {
		return "", err
	}

	sealed := memguard.NewEnclave([]byte(v))
	if sealed != nil {
		c.mu.Lock()
		c.enclaves[key] = sealed
		c.mu.Unlock()
	}
	return v, nil
}

// Set implements Store.
func (c *CachedStore) Set(ctx context.Context, key, value string) error {
	if err := c.backend.Set(ctx, key, value); err != nil {
		return err
	}
	c.invalidate(key)
	return nil
}

// Delete implements Store.
func (c *CachedStore) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		return err
	}
	c.invalidate(key)
	return nil
}

// Purge drops every cached enclave.
func (c *CachedStore) Purge() {
	c.mu.Lock()
	c.enclaves = make(map[string]*memguard.Enclave)
	c.mu.Unlock()
}

func (c *CachedStore) invalidate(key string) {
	c.mu.Lock()
	delete(c.enclaves, key)
	c.mu.Unlock()
}

func open(enclave *memguard.Enclave) (string, error) {
	buf, err := enclave.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	if buf.Size() == 0 {
		return "", errors.New("empty enclave")
	}
	return strings.Clone(buf.String()), nil
}

var _ Store = (*CachedStore)(nil)
