// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks identifiers and credentials that cross a trust
// boundary before they are used to build upstream requests or stored.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// siteIDPattern accepts Atlassian cloud ids (UUIDs) and short test ids.
var siteIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-]{0,127}$`)

// MaxTokenLength bounds stored API tokens.
const MaxTokenLength = 512

// ValidateSiteID checks that a site id extracted from an install context is
// safe to send to the catalog gateway.
func ValidateSiteID(siteID string) error {
	if siteID == "" {
		return fmt.Errorf("site id cannot be empty")
	}
	if !siteIDPattern.MatchString(siteID) {
		return fmt.Errorf("invalid site id format: %q (must be alphanumeric or hyphens, at most 128 chars)", siteID)
	}
	return nil
}

// ValidateToken checks an API token before it is written to the secret
// store. The value itself never appears in the returned error.
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if len(token) > MaxTokenLength {
		return fmt.Errorf("token exceeds %d bytes", MaxTokenLength)
	}
	for _, r := range token {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("token contains whitespace or control characters")
		}
	}
	return nil
}

// SanitizeToken trims surrounding whitespace (pasted tokens often carry a
// trailing newline) and validates the result.
func SanitizeToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if err := ValidateToken(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
