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
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps failures to reach the API at all (DNS, TLS, reset,
	// timeout, cancelled context).
	ErrTransport = errors.New("pagerduty: transport error")

	// ErrContract marks a 2xx response whose body does not have the shape
	// the API documents.
	ErrContract = errors.New("pagerduty: invalid response body")
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string

	// Body is a truncated prefix of the response body, for diagnosis.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pagerduty %s returned status %s", e.Endpoint, e.Status)
}

// ContractError describes why a 2xx body was rejected. It matches
// ErrContract with errors.Is.
type ContractError struct {
	Endpoint string
	Reason   string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("pagerduty %s: %s", e.Endpoint, e.Reason)
}

func (e *ContractError) Is(target error) bool {
	return target == ErrContract
}
