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

// Outcome classifies a data-provider invocation.
type Outcome int

const (
	// OutcomeOK carries a response (possibly the unknown sentinel).
	OutcomeOK Outcome = iota

	// OutcomeSoftFailure means upstream was unavailable; the caller should
	// try again later. No response is produced.
	OutcomeSoftFailure

	// OutcomeHardFailure means upstream broke its contract or the secret
	// store failed. Retrying blindly will not help.
	OutcomeHardFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSoftFailure:
		return "soft_failure"
	case OutcomeHardFailure:
		return "hard_failure"
	default:
		return "unknown"
	}
}

// Result is what Provide returns.
type Result struct {
	Outcome  Outcome
	Response *Response

	// Err is the cause of a soft or hard failure. For hard failures it is a
	// *ValidationError.
	Err error
}

// OK wraps a response.
func OK(resp *Response) Result {
	return Result{Outcome: OutcomeOK, Response: resp}
}

// SoftFailure wraps the upstream error that aborted the call.
func SoftFailure(err error) Result {
	return Result{Outcome: OutcomeSoftFailure, Err: err}
}

// HardFailure wraps the validation detail.
func HardFailure(detail *ValidationError) Result {
	return Result{Outcome: OutcomeHardFailure, Err: detail}
}
