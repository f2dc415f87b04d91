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
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned by Resolve and Provide when the request URL
	// cannot be parsed. It fails the whole invocation.
	ErrInvalidURL = errors.New("invalid request url")

	// ErrNilContext marks an invocation context that is absent or JSON null.
	ErrNilContext = errors.New("invocation context is null")
)

// Pipeline stages named in ValidationError.
const (
	StageCredential = "credential"
	StageAnalytics  = "analytics"
	StageIncidents  = "incidents"
)

// ValidationError is the detail of a hard failure: the upstream answered
// successfully but with a body that breaks its contract, or the secret
// store failed for a reason other than absence.
type ValidationError struct {
	Stage     string
	ServiceID string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed for service %q: %v", e.Stage, e.ServiceID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidContextError is returned when a sync-trigger invocation context
// does not carry a usable install context.
type InvalidContextError struct {
	Reason string
}

func (e *InvalidContextError) Error() string {
	return "invalid invocation context: " + e.Reason
}
