// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataprovider turns a Compass data-provider request into metrics
// and incident events read from PagerDuty.
//
// # Description
//
// A call runs these steps in order, stopping at the first that decides the
// outcome:
//
//  1. Resolve the request URL to a service id, or skip.
//  2. Read the API token from the secret store, or skip.
//  3. Fetch the 28-day MTTR aggregate.
//  4. Fetch up to 100 incidents.
//  5. Normalize incidents and assemble the response.
//
// Skips return the "pd:unknown" sentinel before any upstream call. An
// upstream error status or an unreachable upstream is a soft failure. A
// successful answer with a malformed body is a hard failure.
//
// The package also hosts the sync trigger, the Compass callback and
// lifecycle hooks, and their gin handlers.
//
// # Thread Safety
//
// Provider and SyncTrigger are safe for concurrent use. Invocations share
// only the secret store, the optional analytics memo and the metrics.
package dataprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/compass-pagerduty/pkg/telemetry"
	"github.com/AleutianAI/compass-pagerduty/services/pagerduty"
	"github.com/AleutianAI/compass-pagerduty/services/secrets"
)

const tracerName = "compass-pagerduty/dataprovider"

// Upstream is the PagerDuty capability the provider needs.
// *pagerduty.Client satisfies it.
type Upstream interface {
	MeanTimeToResolve(ctx context.Context, token, serviceID string, now time.Time) (pagerduty.AnalyticsAggregate, error)
	ListIncidents(ctx context.Context, token, serviceID string) ([]pagerduty.Incident, error)
}

// Request is one data-provider invocation.
type Request struct {
	URL string `json:"url" binding:"required"`

	// Context is the opaque invocation context. It is accepted and ignored.
	Context map[string]any `json:"context,omitempty"`
}

// Option customizes a Provider.
type Option func(*Provider)

// WithCustomMetrics declares custom metrics on every service response.
func WithCustomMetrics(metrics []CustomMetric) Option {
	return func(p *Provider) {
		p.customMetrics = append([]CustomMetric(nil), metrics...)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithClock overrides the reference time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithSink records every computed metric value.
func WithSink(s MetricSink) Option {
	return func(p *Provider) { p.sink = s }
}

// WithMemo enables analytics memoization.
func WithMemo(m *AnalyticsMemo) Option {
	return func(p *Provider) { p.memo = m }
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// Provider runs the data-provider pipeline.
type Provider struct {
	gate          *CredentialGate
	upstream      Upstream
	customMetrics []CustomMetric
	logger        *slog.Logger
	now           func() time.Time
	sink          MetricSink
	memo          *AnalyticsMemo
	metrics       *Metrics
}

// NewProvider returns a Provider reading the token from store and data
// from upstream.
func NewProvider(store secrets.Store, upstream Upstream, opts ...Option) *Provider {
	p := &Provider{
		upstream: upstream,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.gate = NewCredentialGate(store, p.logger)
	return p
}

// Provide runs one invocation. The returned error is non-nil only when the
// request URL is invalid (ErrInvalidURL); every other outcome is carried by
// the Result.
func (p *Provider) Provide(ctx context.Context, req Request) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "dataprovider.Provide")
	defer span.End()

	p.logger.Info("data provider request", "url", req.URL)

	decision, err := Resolve(req.URL)
	if err != nil {
		p.metrics.ObserveOutcome("invalid_url")
		telemetry.RecordError(span, err)
		return Result{}, err
	}
	if !decision.IsService() {
		p.logger.Info("skipping url", "url", req.URL, "reason", decision.Reason)
		return p.finish(span, OK(UnknownResponse())), nil
	}
	serviceID := decision.ServiceID
	span.SetAttributes(attribute.String("pagerduty.service_id", serviceID))

	token, ok, err := p.gate.Token(ctx)
	if err != nil {
		return p.finish(span, HardFailure(&ValidationError{
			Stage:     StageCredential,
			ServiceID: serviceID,
			Err:       fmt.Errorf("read %s: %w", secrets.KeyAPIToken, err),
		})), nil
	}
	if !ok {
		return p.finish(span, OK(UnknownResponse())), nil
	}

	p.logger.Info("resolved service", "service_id", serviceID)
	builder := NewServiceResponse(serviceID, p.customMetrics)
	now := p.now()

	seconds, err := p.memo.Lookup(ctx, serviceID, now, func(ctx context.Context) (float64, error) {
		agg, err := p.upstream.MeanTimeToResolve(ctx, token, serviceID, now)
		if err != nil {
			return 0, err
		}
		return agg.MeanSeconds(), nil
	})
	if err != nil {
		return p.finish(span, p.upstreamFailure(StageAnalytics, serviceID, err)), nil
	}

	incidents, err := p.upstream.ListIncidents(ctx, token, serviceID)
	if err != nil {
		return p.finish(span, p.upstreamFailure(StageIncidents, serviceID, err)), nil
	}

	minutes := SecondsToMinutes(seconds)
	resp := builder.
		AddBuiltInMetricValue(MetricMTTR28D, minutes).
		AddIncidents(NormalizeIncidents(incidents)...).
		Build()

	if p.sink != nil {
		if err := p.sink.RecordMetric(ctx, serviceID, MetricMTTR28D, minutes, now); err != nil {
			p.logger.Warn("failed to record metric history", "service_id", serviceID, "error", err)
		}
	}

	p.logger.Debug("data provider response built",
		"service_id", serviceID,
		"mttr_minutes", minutes,
		"incidents", len(resp.Incidents))
	return p.finish(span, OK(resp)), nil
}

// upstreamFailure classifies a fetch error. Contract violations are hard
// failures; everything else means PagerDuty was unavailable.
func (p *Provider) upstreamFailure(stage, serviceID string, err error) Result {
	if errors.Is(err, pagerduty.ErrContract) {
		return HardFailure(&ValidationError{Stage: stage, ServiceID: serviceID, Err: err})
	}
	p.logger.Warn("failed to fetch from PagerDuty",
		"stage", stage,
		"service_id", serviceID,
		"error", err)
	return SoftFailure(fmt.Errorf("%s for service %q: %w", stage, serviceID, err))
}

func (p *Provider) finish(span trace.Span, r Result) Result {
	span.SetAttributes(attribute.String("dataprovider.outcome", r.Outcome.String()))
	switch r.Outcome {
	case OutcomeHardFailure:
		p.logger.Error("invalid upstream data", "error", r.Err)
		telemetry.RecordError(span, r.Err)
	case OutcomeSoftFailure:
		telemetry.RecordError(span, r.Err)
	default:
		telemetry.SetSpanOK(span)
	}
	p.metrics.ObserveOutcome(r.Outcome.String())
	return r
}
