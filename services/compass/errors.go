// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compass

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGatewayURL is returned when the client is used without an endpoint.
	ErrNoGatewayURL = errors.New("compass: gateway url not configured")

	// ErrMissingAppID is returned when the mutation input lacks an app id.
	ErrMissingAppID = errors.New("compass: forge app id not configured")

	// ErrMissingCloudID is returned when the mutation input lacks a cloud id.
	ErrMissingCloudID = errors.New("compass: cloud id is empty")

	// ErrEmptyResponse is returned when the gateway answers without the
	// mutation payload.
	ErrEmptyResponse = errors.New("compass: response has no mutation payload")
)

// GatewayError is returned for non-2xx answers and for top-level GraphQL
// errors without data.
type GatewayError struct {
	StatusCode int
	Messages   []string
}

func (e *GatewayError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("compass gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("compass gateway error (status %d): %s", e.StatusCode, e.Messages[0])
}
