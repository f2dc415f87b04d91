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

import "math"

const (
	// ProviderPrefix namespaces provider ids.
	ProviderPrefix = "pd"

	// UnknownProviderID tags a response not bound to any service.
	UnknownProviderID = ProviderPrefix + ":unknown"
)

// BuiltinMetric names a metric Compass defines itself.
type BuiltinMetric string

// MetricMTTR28D is the mean time to resolve over the last 28 days, in
// minutes.
const MetricMTTR28D BuiltinMetric = "MTTR_28D"

// EventType names a class of events a provider can send.
type EventType string

const EventTypeIncidents EventType = "INCIDENTS"

// MetricFormat controls how Compass renders a custom metric value.
type MetricFormat struct {
	Suffix string `json:"suffix" yaml:"suffix"`
}

// CustomMetric is a configured custom metric. Format is configuration
// only and is not published with the definition.
type CustomMetric struct {
	Name        string        `json:"name" yaml:"name" validate:"required"`
	Description string        `json:"description,omitempty" yaml:"description"`
	Format      *MetricFormat `json:"format,omitempty" yaml:"format"`
}

// CustomMetricDefinition is a CustomMetric as published in a response.
type CustomMetricDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Definition strips the configuration-only fields.
func (m CustomMetric) Definition() CustomMetricDefinition {
	return CustomMetricDefinition{Name: m.Name, Description: m.Description}
}

// MetricValue is one computed metric.
type MetricValue struct {
	MetricDefinition BuiltinMetric `json:"metricDefinition"`
	Value            int64         `json:"value"`
}

// Response is the payload returned to Compass for one data-provider call.
// Collections are never nil so they serialize as [].
type Response struct {
	ProviderID               string                   `json:"providerId"`
	BuiltInMetricDefinitions []BuiltinMetric          `json:"builtInMetricDefinitions"`
	CustomMetricDefinitions  []CustomMetricDefinition `json:"customMetricDefinitions"`
	EventTypes               []EventType              `json:"eventTypes"`
	MetricValues             []MetricValue            `json:"metricValues"`
	Incidents                []IncidentEvent          `json:"incidents"`
}

// MetricValue returns the value recorded for metric, if any.
func (r *Response) MetricValue(metric BuiltinMetric) (int64, bool) {
	for _, v := range r.MetricValues {
		if v.MetricDefinition == metric {
			return v.Value, true
		}
	}
	return 0, false
}

// UnknownResponse builds the sentinel response returned when a call cannot
// be bound to a service or no token is configured.
func UnknownResponse() *Response {
	return &Response{
		ProviderID:               UnknownProviderID,
		BuiltInMetricDefinitions: []BuiltinMetric{},
		CustomMetricDefinitions:  []CustomMetricDefinition{},
		EventTypes:               []EventType{},
		MetricValues:             []MetricValue{},
		Incidents:                []IncidentEvent{},
	}
}

// ResponseBuilder assembles a service response. Build returns a fresh
// value; the builder must not be reused after Build.
type ResponseBuilder struct {
	resp *Response
}

// NewServiceResponse starts a response for serviceID declaring the MTTR
// metric, the incident event type and the given custom metrics.
func NewServiceResponse(serviceID string, custom []CustomMetric) *ResponseBuilder {
	defs := make([]CustomMetricDefinition, 0, len(custom))
	for _, m := range custom {
		defs = append(defs, m.Definition())
	}
	return &ResponseBuilder{resp: &Response{
		ProviderID:               ProviderPrefix + ":" + serviceID,
		BuiltInMetricDefinitions: []BuiltinMetric{MetricMTTR28D},
		CustomMetricDefinitions:  defs,
		EventTypes:               []EventType{EventTypeIncidents},
		MetricValues:             []MetricValue{},
		Incidents:                []IncidentEvent{},
	}}
}

// AddBuiltInMetricValue records a value for metric.
func (b *ResponseBuilder) AddBuiltInMetricValue(metric BuiltinMetric, value int64) *ResponseBuilder {
	b.resp.MetricValues = append(b.resp.MetricValues, MetricValue{MetricDefinition: metric, Value: value})
	return b
}

// AddIncidents appends events in order.
func (b *ResponseBuilder) AddIncidents(events ...IncidentEvent) *ResponseBuilder {
	b.resp.Incidents = append(b.resp.Incidents, events...)
	return b
}

// Build returns the assembled response.
func (b *ResponseBuilder) Build() *Response {
	r := b.resp
	b.resp = nil
	return r
}

// SecondsToMinutes converts a duration in seconds to whole minutes,
// truncating toward zero. NaN and infinities yield 0.
func SecondsToMinutes(seconds float64) int64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	return int64(math.Trunc(seconds / 60))
}
