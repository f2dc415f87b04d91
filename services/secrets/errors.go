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

import "errors"

var (
	// ErrSecretNotFound is returned when no backend holds the key.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrReadOnly is returned by backends that cannot store values.
	ErrReadOnly = errors.New("secret backend is read-only")

	// ErrEmptyKey is returned for an empty secret key.
	ErrEmptyKey = errors.New("secret key cannot be empty")
)
