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

import "time"

// Endpoint names used in errors, logs and metric labels.
const (
	EndpointAnalytics = "analytics"
	EndpointIncidents = "incidents"
)

const (
	// DefaultBaseURL is the PagerDuty REST API root.
	DefaultBaseURL = "https://api.pagerduty.com"

	// AnalyticsWindow is the trailing window aggregated for MTTR.
	AnalyticsWindow = 28 * 24 * time.Hour

	// IncidentPageLimit is the number of incidents requested per service.
	IncidentPageLimit = 100

	// UrgencyHigh is the only urgency included in the MTTR aggregate.
	UrgencyHigh = "high"

	// AggregateMonth buckets the analytics result by calendar month.
	AggregateMonth = "month"

	acceptHeader     = "application/vnd.pagerduty+json;version=2"
	earlyAccessValue = "analytics-v2"

	// timeLayout renders ISO-8601 with a zone designator; times are UTC so
	// the designator is always "Z".
	timeLayout = "2006-01-02T15:04:05Z07:00"
)

// AnalyticsFilters is the "filters" object of an aggregate analytics query.
type AnalyticsFilters struct {
	CreatedAtStart string   `json:"created_at_start"`
	CreatedAtEnd   string   `json:"created_at_end"`
	ServiceIDs     []string `json:"service_ids"`
	Urgency        string   `json:"urgency"`
}

// AnalyticsRequest is the body posted to the aggregate analytics endpoint.
type AnalyticsRequest struct {
	Filters       AnalyticsFilters `json:"filters"`
	AggregateUnit string           `json:"aggregate_unit"`
}

// AnalyticsAggregate is one time bucket of the aggregate result. Only the
// field this service consumes is decoded.
type AnalyticsAggregate struct {
	MeanSecondsToResolve *float64 `json:"mean_seconds_to_resolve"`
}

// MeanSeconds returns the bucket's MTTR in seconds, 0 when absent.
func (a AnalyticsAggregate) MeanSeconds() float64 {
	if a.MeanSecondsToResolve == nil {
		return 0
	}
	return *a.MeanSecondsToResolve
}

// Incident is an upstream incident record as listed by /incidents.
type Incident struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	HTMLURL            string `json:"html_url"`
	Status             string `json:"status"`
	LastStatusChangeAt string `json:"last_status_change_at"`
}

// Upstream incident statuses.
const (
	StatusTriggered    = "triggered"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

// NewAnalyticsRequest builds the MTTR query for serviceID over the window
// ending at now.
func NewAnalyticsRequest(serviceID string, now time.Time) AnalyticsRequest {
	end := now.UTC()
	start := end.Add(-AnalyticsWindow)
	return AnalyticsRequest{
		Filters: AnalyticsFilters{
			CreatedAtStart: start.Format(timeLayout),
			CreatedAtEnd:   end.Format(timeLayout),
			ServiceIDs:     []string{serviceID},
			Urgency:        UrgencyHigh,
		},
		AggregateUnit: AggregateMonth,
	}
}
