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

import "github.com/AleutianAI/compass-pagerduty/services/pagerduty"

// IncidentState is the Compass state of an incident event.
type IncidentState string

const (
	StateOpen     IncidentState = "OPEN"
	StateResolved IncidentState = "RESOLVED"
)

// SequenceNumberUnversioned is sent as updateSequenceNumber on every event;
// incidents are re-sent as full snapshots, never as increments.
const SequenceNumberUnversioned = "0"

// IncidentEvent is a PagerDuty incident in Compass's event shape.
type IncidentEvent struct {
	ID                   string        `json:"id"`
	DisplayName          string        `json:"displayName"`
	Description          string        `json:"description"`
	URL                  string        `json:"url"`
	State                IncidentState `json:"state"`
	LastUpdated          string        `json:"lastUpdated"`
	UpdateSequenceNumber string        `json:"updateSequenceNumber"`
}

// NormalizeIncident maps one upstream incident. Only the "resolved" status
// maps to RESOLVED; triggered, acknowledged and anything unknown are OPEN.
func NormalizeIncident(in pagerduty.Incident) IncidentEvent {
	state := StateOpen
	if in.Status == pagerduty.StatusResolved {
		state = StateResolved
	}
	return IncidentEvent{
		ID:                   in.ID,
		DisplayName:          in.Title,
		Description:          in.Description,
		URL:                  in.HTMLURL,
		State:                state,
		LastUpdated:          in.LastStatusChangeAt,
		UpdateSequenceNumber: SequenceNumberUnversioned,
	}
}

// NormalizeIncidents maps every incident, preserving order. The result is
// never nil.
func NormalizeIncidents(in []pagerduty.Incident) []IncidentEvent {
	out := make([]IncidentEvent, 0, len(in))
	for _, inc := range in {
		out = append(out, NormalizeIncident(inc))
	}
	return out
}
