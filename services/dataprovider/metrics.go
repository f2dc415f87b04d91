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
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "compass"
	metricsSubsystem = "pagerduty"
)

// Metrics holds the Prometheus collectors for the provider, the upstream
// client and the sync trigger. All methods are safe on a nil receiver.
type Metrics struct {
	// ProviderRequests counts data-provider invocations.
	// Labels: outcome (ok, soft_failure, hard_failure, invalid_url)
	ProviderRequests *prometheus.CounterVec

	// UpstreamRequests counts PagerDuty attempts, retries included.
	// Labels: endpoint (analytics, incidents), status (HTTP code, or "error")
	UpstreamRequests *prometheus.CounterVec

	// UpstreamDuration measures each PagerDuty attempt.
	// Labels: endpoint
	UpstreamDuration *prometheus.HistogramVec

	// SyncRequests counts sync-trigger invocations by returned status code.
	SyncRequests *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "provider_requests_total",
				Help:      "Data provider invocations by outcome.",
			},
			[]string{"outcome"},
		),
		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "upstream_requests_total",
				Help:      "PagerDuty API attempts by endpoint and status.",
			},
			[]string{"endpoint", "status"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "upstream_request_duration_seconds",
				Help:      "PagerDuty API attempt latency.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		SyncRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "sync_requests_total",
				Help:      "Sync trigger invocations by returned status code.",
			},
			[]string{"status"},
		),
	}
}

// ObserveUpstream implements pagerduty.Observer.
func (m *Metrics) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequests.WithLabelValues(endpoint, label).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveOutcome counts one provider invocation.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(outcome).Inc()
}

// ObserveSync counts one sync-trigger invocation.
func (m *Metrics) ObserveSync(statusCode int) {
	if m == nil {
		return
	}
	m.SyncRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}
