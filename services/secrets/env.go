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
	"os"
)

// DefaultEnvMapping maps secret keys to the environment variables read by
// EnvStore.
var DefaultEnvMapping = map[string]string{
	KeyAPIToken:     "PAGERDUTY_API_TOKEN",
	KeyGatewayToken: "COMPASS_API_TOKEN",
}

// EnvStore is a read-only Store over environment variables.
type EnvStore struct {
	mapping map[string]string
	lookup  func(string) (string, bool)
}

// NewEnvStore returns an EnvStore using mapping, or DefaultEnvMapping when
// mapping is nil.
func NewEnvStore(mapping map[string]string) *EnvStore {
	if mapping == nil {
		mapping = DefaultEnvMapping
	}
	return &EnvStore{mapping: mapping, lookup: os.LookupEnv}
}

// Get implements Store. Unset and empty variables are both "not found".
func (e *EnvStore) Get(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	name, ok := e.mapping[key]
	if !ok {
		return "", ErrSecretNotFound
	}
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return "", ErrSecretNotFound
	}
	return v, nil
}

// Set implements Store.
func (e *EnvStore) Set(context.Context, string, string) error { return ErrReadOnly }

// Delete implements Store.
func (e *EnvStore) Delete(context.Context, string) error { return ErrReadOnly }

var _ Store = (*EnvStore)(nil)
