// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataprovider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// AnalyticsMemo remembers MTTR lookups per service and UTC day for a fixed
// TTL, and collapses concurrent identical lookups into one upstream call.
// Errors are returned to every waiter but never stored.
//
// A nil *AnalyticsMemo calls through on every lookup.
type AnalyticsMemo struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]memoEntry
}

type memoEntry struct {
	seconds float64
	expires time.Time
}

// NewAnalyticsMemo returns a memo with the given TTL. A TTL <= 0 returns
// nil, which disables memoization.
func NewAnalyticsMemo(ttl time.Duration) *AnalyticsMemo {
	if ttl <= 0 {
		return nil
	}
	return &AnalyticsMemo{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoEntry),
	}
}

func memoKey(serviceID string, at time.Time) string {
	return serviceID + "|" + at.UTC().Format(time.DateOnly)
}

// Lookup returns the memoized value for (serviceID, day of at), calling
// fetch on a miss. A shared fetch runs detached from any one caller's
// cancellation; each caller stops waiting when its own ctx is done.
func (m *AnalyticsMemo) Lookup(ctx context.Context, serviceID string, at time.Time, fetch func(context.Context) (float64, error)) (float64, error) {
	if m == nil {
		return fetch(ctx)
	}
	key := memoKey(serviceID, at)
	if v, ok := m.cached(key); ok {
		return v, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		if v, ok := m.cached(key); ok {
			return v, nil
		}
		seconds, err := fetch(shared)
		if err != nil {
			return 0.0, err
		}
		m.mu.Lock()
		m.entries[key] = memoEntry{seconds: seconds, expires: m.now().Add(m.ttl)}
		m.mu.Unlock()
		return seconds, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}

// cached returns a live entry, dropping it if expired.
func (m *AnalyticsMemo) cached(key string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return 0, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return 0, false
	}
	return e.seconds, true
}

// Len returns the number of stored entries, expired or not.
func (m *AnalyticsMemo) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
