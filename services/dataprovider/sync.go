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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/compass-pagerduty/pkg/telemetry"
	"github.com/AleutianAI/compass-pagerduty/pkg/validation"
	"github.com/AleutianAI/compass-pagerduty/services/compass"
)

// InstallContextPrefix precedes the site id in an install context ARI.
const InstallContextPrefix = "ari:cloud:compass::site/"

// InstallContext is a validated invocation context: either a site id or the
// reason it was rejected.
type InstallContext struct {
	siteID string
	reason string
}

// SiteID returns the site id and whether the context is valid.
func (c InstallContext) SiteID() (string, bool) {
	return c.siteID, c.reason == ""
}

// Valid reports whether the context carries a site id.
func (c InstallContext) Valid() bool {
	return c.reason == ""
}

// Err returns an *InvalidContextError for an invalid context, nil otherwise.
func (c InstallContext) Err() error {
	if c.Valid() {
		return nil
	}
	return &InvalidContextError{Reason: c.reason}
}

func invalidContext(format string, args ...any) InstallContext {
	return InstallContext{reason: fmt.Sprintf(format, args...)}
}

// ParseInstallContext validates a raw invocation context. It must be a JSON
// object with a string "installContext" of the form
// "ari:cloud:compass::site/<siteId>".
func ParseInstallContext(raw []byte) InstallContext {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return invalidContext("%v", ErrNilContext)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return invalidContext("context is not an object")
	}
	rawInstall, ok := fields["installContext"]
	if !ok {
		return invalidContext("installContext is missing")
	}
	var install string
	if err := json.Unmarshal(rawInstall, &install); err != nil {
		return invalidContext("installContext is not a string")
	}
	siteID, ok := strings.CutPrefix(install, InstallContextPrefix)
	if !ok {
		return invalidContext("installContext %q does not start with %q", install, InstallContextPrefix)
	}
	if err := validation.ValidateSiteID(siteID); err != nil {
		return invalidContext("%v", err)
	}
	return InstallContext{siteID: siteID}
}

// WebTriggerResponse is the HTTP-shaped result of a web trigger.
type WebTriggerResponse struct {
	Body       string              `json:"body"`
	Headers    map[string][]string `json:"headers,omitempty"`
	StatusCode int                 `json:"statusCode"`
	StatusText string              `json:"statusText,omitempty"`
}

// SyncTrigger asks Compass to synchronize link associations for a site.
type SyncTrigger struct {
	gateway compass.Gateway
	appID   string
	logger  *slog.Logger
	metrics *Metrics
}

// SyncOption customizes a SyncTrigger.
type SyncOption func(*SyncTrigger)

// WithSyncLogger sets the logger. Defaults to slog.Default().
func WithSyncLogger(l *slog.Logger) SyncOption {
	return func(t *SyncTrigger) { t.logger = l }
}

// WithSyncMetrics enables Prometheus counters.
func WithSyncMetrics(m *Metrics) SyncOption {
	return func(t *SyncTrigger) { t.metrics = m }
}

// NewSyncTrigger returns a trigger that calls gateway on behalf of appID.
func NewSyncTrigger(gateway compass.Gateway, appID string, opts ...SyncOption) *SyncTrigger {
	t := &SyncTrigger{gateway: gateway, appID: appID, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Trigger validates rawContext and runs the synchronization. It never
// returns an error: failures, panics included, become a 500 response.
func (t *SyncTrigger) Trigger(ctx context.Context, rawContext []byte) (resp WebTriggerResponse) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "dataprovider.TriggerSync")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sync trigger panic: %v", r)
			t.logger.Error("sync trigger panicked", "panic", r)
			telemetry.RecordError(span, err)
			resp = errorResponse(err)
		}
		t.metrics.ObserveSync(resp.StatusCode)
	}()

	install := ParseInstallContext(rawContext)
	siteID, ok := install.SiteID()
	if !ok {
		err := install.Err()
		t.logger.Warn("rejecting sync trigger", "error", err)
		telemetry.RecordError(span, err)
		return errorResponse(err)
	}

	result, err := t.gateway.SynchronizeLinkAssociations(ctx, compass.SyncInput{
		CloudID:    siteID,
		ForgeAppID: t.appID,
	})
	if err != nil {
		t.logger.Error("link association sync failed", "site_id", siteID, "error", err)
		telemetry.RecordError(span, err)
		return errorResponse(err)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return errorResponse(err)
	}

	resp = WebTriggerResponse{
		Body:    string(body) + "\n",
		Headers: map[string][]string{"Content-Type": {"application/json"}},
	}
	if result.Success {
		resp.StatusCode = http.StatusOK
		resp.StatusText = "OK"
		telemetry.SetSpanOK(span)
	} else {
		resp.StatusCode = http.StatusInternalServerError
		resp.StatusText = "Server Error"
		t.logger.Warn("link association sync reported failure", "site_id", siteID, "errors", len(result.Errors))
	}
	return resp
}

func errorResponse(err error) WebTriggerResponse {
	body, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		body = []byte(`{"error":"internal error"}`)
	}
	return WebTriggerResponse{
		Body:       string(body) + "\n",
		StatusCode: http.StatusInternalServerError,
	}
}
