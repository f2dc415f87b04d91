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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantKind  RouteKind
		wantID    string
		wantError bool
	}{
		{name: "service", url: "https://acme.pagerduty.com/service-directory/PABC123", wantKind: RouteService, wantID: "PABC123"},
		{name: "trailing segments ignored", url: "https://acme.pagerduty.com/service-directory/PABC123/integrations", wantKind: RouteService, wantID: "PABC123"},
		{name: "query ignored", url: "https://acme.pagerduty.com/service-directory/P1?tab=activity", wantKind: RouteService, wantID: "P1"},
		{name: "encoded slash kept", url: "https://acme.pagerduty.com/service-directory/abc%2Fdef", wantKind: RouteService, wantID: "abc%2Fdef"},
		{name: "encoded space kept", url: "https://acme.pagerduty.com/service-directory/P%20Q", wantKind: RouteService, wantID: "P%20Q"},
		{name: "other root", url: "https://acme.pagerduty.com/incidents/Q1", wantKind: RouteSkip},
		{name: "root case sensitive", url: "https://acme.pagerduty.com/Service-Directory/P1", wantKind: RouteSkip},
		{name: "missing service", url: "https://acme.pagerduty.com/service-directory", wantKind: RouteSkip},
		{name: "empty service", url: "https://acme.pagerduty.com/service-directory/", wantKind: RouteSkip},
		{name: "empty path", url: "https://acme.pagerduty.com", wantKind: RouteSkip},
		{name: "relative", url: "/service-directory/P1", wantError: true},
		{name: "garbage", url: "://nope", wantError: true},
		{name: "empty", url: "", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.url)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantID, got.ServiceID)
			assert.Equal(t, tt.wantKind == RouteService, got.IsService())
			if got.Kind == RouteSkip {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	const u = "https://x.pagerduty.com/service-directory/PDET"
	first, err := Resolve(u)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Resolve(u)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRouteKind_String(t *testing.T) {
	assert.Equal(t, "service", RouteService.String())
	assert.Equal(t, "skip", RouteSkip.String())
}
