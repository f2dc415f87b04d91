// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pagerduty

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryableStatus lists the answers that mean "try again shortly".
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

type retryPolicy struct {
	maxRetries      int
	initialInterval time.Duration
}

func (p retryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxInterval = 5 * time.Second
	return b
}

// run calls op until it succeeds, returns a permanent error, or has been
// tried maxRetries+1 times.
func (p retryPolicy) run(ctx context.Context, op func() (*http.Response, error)) (*http.Response, error) {
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.maxRetries+1)),
	)
}

func permanent(err error) error {
	return backoff.Permanent(err)
}
