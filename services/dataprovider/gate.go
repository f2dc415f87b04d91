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
	"errors"
	"log/slog"

	"github.com/AleutianAI/compass-pagerduty/services/secrets"
)

// CredentialGate looks up the PagerDuty API token. Absence is an expected
// state (the app is installed but not configured yet) and is reported as
// ok=false, not as an error.
type CredentialGate struct {
	store  secrets.Store
	logger *slog.Logger
}

// NewCredentialGate returns a gate over store.
func NewCredentialGate(store secrets.Store, logger *slog.Logger) *CredentialGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialGate{store: store, logger: logger}
}

// Token returns the stored token. ok is false when it is missing or empty;
// err is set only when the store itself failed.
func (g *CredentialGate) Token(ctx context.Context) (token string, ok bool, err error) {
	if g.store == nil {
		g.logger.Warn("PagerDuty token unset, skipping", "reason", "no secret store")
		return "", false, nil
	}
	token, err = g.store.Get(ctx, secrets.KeyAPIToken)
	switch {
	case errors.Is(err, secrets.ErrSecretNotFound):
		g.logger.Warn("PagerDuty token unset, skipping")
		return "", false, nil
	case err != nil:
		return "", false, err
	case token == "":
		g.logger.Warn("PagerDuty token unset, skipping")
		return "", false, nil
	}
	return token, true, nil
}
