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
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/compass-pagerduty/pkg/telemetry"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RouteDeps is everything SetupRoutes wires into handlers.
type RouteDeps struct {
	Provider    *Provider
	SyncTrigger *SyncTrigger
	Logger      *slog.Logger

	// Gatherer backs GET /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	// ServiceName is the span service name used by otelgin.
	ServiceName string
}

// SetupRoutes registers the HTTP API on router.
func SetupRoutes(router *gin.Engine, deps RouteDeps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "compass-pagerduty"
	}

	router.Use(otelgin.Middleware(serviceName))
	router.Use(RequestID())
	router.Use(RequestLogger(logger))

	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		v1.POST("/data-provider", HandleDataProvider(deps.Provider))
		v1.POST("/data-provider/callback", HandleCallbackRequest(logger))
		v1.POST("/lifecycle/installed", HandleInstalledRequest(logger))
		v1.POST("/webtrigger/sync", HandleSyncTrigger(deps.SyncTrigger))
	}
}

// RequestID propagates an inbound X-Request-ID or assigns a new UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger logs one line per request, with the request and trace ids.
// Query strings are not logged.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/health" {
			return
		}
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"request_id", GetRequestID(c),
			"trace_id", telemetry.TraceID(c.Request.Context()))
	}
}
