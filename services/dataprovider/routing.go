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
	"fmt"
	"net/url"
	"strings"
)

// ServiceDirectoryRoot is the first path segment of URLs that identify a
// PagerDuty service.
const ServiceDirectoryRoot = "service-directory"

// RouteKind says whether a URL maps to a service.
type RouteKind int

const (
	RouteSkip RouteKind = iota
	RouteService
)

func (k RouteKind) String() string {
	if k == RouteService {
		return "service"
	}
	return "skip"
}

// RoutingDecision is the outcome of resolving a request URL.
type RoutingDecision struct {
	Kind      RouteKind
	ServiceID string

	// Reason explains a skip, for logging.
	Reason string
}

// IsService reports whether the decision carries a service id.
func (d RoutingDecision) IsService() bool {
	return d.Kind == RouteService
}

// Resolve maps a request URL to a routing decision. Only
// <scheme>://<host>/service-directory/<id>[/...] routes to a service; any
// other parseable absolute URL is a skip. Segments keep their percent
// encoding. An unparseable or relative URL returns an error wrapping
// ErrInvalidURL.
func Resolve(rawURL string) (RoutingDecision, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return RoutingDecision{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme == "" || (u.Host == "" && u.Opaque == "") {
		return RoutingDecision{}, fmt.Errorf("%w: %q is not an absolute url", ErrInvalidURL, rawURL)
	}

	segments := strings.Split(strings.TrimPrefix(u.EscapedPath(), "/"), "/")
	root := segments[0]
	service := ""
	if len(segments) > 1 {
		service = segments[1]
	}

	switch {
	case root != ServiceDirectoryRoot:
		return RoutingDecision{Kind: RouteSkip, Reason: "not a service directory path"}, nil
	case service == "":
		return RoutingDecision{Kind: RouteSkip, Reason: "missing service id"}, nil
	}
	return RoutingDecision{Kind: RouteService, ServiceID: service}, nil
}
