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
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/compass-pagerduty/services/compass"
	"github.com/AleutianAI/compass-pagerduty/services/pagerduty"
	"github.com/AleutianAI/compass-pagerduty/services/secrets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	upstream *fakeUpstream
	gateway  *fakeGateway
	logs     *bytes.Buffer
}

func newTestServer(t *testing.T, up *fakeUpstream) *testServer {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	gw := &fakeGateway{result: compass.SyncResult{Success: true}}

	provider := newTestProvider(newMemoryStore(secrets.KeyAPIToken, "tok"), up, WithMetrics(metrics), WithLogger(logger))
	trigger := NewSyncTrigger(gw, "app-1", WithSyncLogger(logger), WithSyncMetrics(metrics))

	router := gin.New()
	SetupRoutes(router, RouteDeps{
		Provider:    provider,
		SyncTrigger: trigger,
		Logger:      logger,
		Gatherer:    reg,
	})
	return &testServer{router: router, upstream: up, gateway: gw, logs: logs}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHandleDataProvider_OK(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{seconds: 1800, incidents: []pagerduty.Incident{{ID: "Q1", Status: "resolved"}}})

	w := s.do(http.MethodPost, "/v1/data-provider", `{"url":"`+serviceURL+`","context":{"cloudId":"c"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pd:PSVC1", resp.ProviderID)
	v, _ := resp.MetricValue(MetricMTTR28D)
	assert.Equal(t, int64(30), v)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestHandleDataProvider_Unknown(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})
	w := s.do(http.MethodPost, "/v1/data-provider", `{"url":"https://acme.pagerduty.com/incidents"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"providerId":"pd:unknown"`)
	assert.Equal(t, 0, s.upstream.calls())
}

func TestHandleDataProvider_SoftFailure(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{analyticsErr: &pagerduty.StatusError{StatusCode: 503, Status: "503"}})
	w := s.do(http.MethodPost, "/v1/data-provider", `{"url":"`+serviceURL+`"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", strings.TrimSpace(w.Body.String()))
	assert.Equal(t, "soft-failure", w.Header().Get(OutcomeHeader))
}

func TestHandleDataProvider_HardFailure(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{incidentsErr: &pagerduty.ContractError{Endpoint: "incidents", Reason: "missing incidents"}})
	w := s.do(http.MethodPost, "/v1/data-provider", `{"url":"`+serviceURL+`"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid upstream data", body["error"])
	assert.Contains(t, body["details"], "missing incidents")
}

func TestHandleDataProvider_BadRequests(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})
	for _, body := range []string{`not json`, `{}`, `{"url":"relative/only"}`} {
		w := s.do(http.MethodPost, "/v1/data-provider", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Equal(t, 0, s.upstream.calls())
}

func TestHandleCallback(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})

	w := s.do(http.MethodPost, "/v1/data-provider/callback", `{"success":true,"url":"https://x/service-directory/P1"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, s.logs.String(), "callback reported failure")

	w = s.do(http.MethodPost, "/v1/data-provider/callback", `{"success":false,"url":"https://x/service-directory/P1","errorMessage":"bad payload"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, s.logs.String(), "callback reported failure")
	assert.Contains(t, s.logs.String(), "bad payload")
}

func TestHandleInstalled(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})
	w := s.do(http.MethodPost, "/v1/lifecycle/installed", `{"eventType":"avi:forge:installed:app","context":{"cloudId":"c1"}}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, s.logs.String(), "app installed")

	w = s.do(http.MethodPost, "/v1/lifecycle/installed", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSyncTrigger(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})

	w := s.do(http.MethodPost, "/v1/webtrigger/sync", `{"installContext":"ari:cloud:compass::site/ABC"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasSuffix(w.Body.String(), "\n"))
	assert.Equal(t, "ABC", s.gateway.input.CloudID)

	w = s.do(http.MethodPost, "/v1/webtrigger/sync", `{"installContext":"bogus"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "invalid invocation context")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})
	s.do(http.MethodPost, "/v1/data-provider", `{"url":"https://acme.pagerduty.com/x"}`)

	w := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), `compass_pagerduty_provider_requests_total{outcome="ok"} 1`)
}

func TestRequestID_Propagates(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequestLogger_IncludesTraceID(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	s := newTestServer(t, &fakeUpstream{})
	w := s.do(http.MethodPost, "/v1/data-provider", `{"url":"https://acme.pagerduty.com/x"}`)
	require.Equal(t, http.StatusOK, w.Code)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	traceID := spans[0].SpanContext.TraceID().String()
	assert.Contains(t, s.logs.String(), "trace_id="+traceID)
}
