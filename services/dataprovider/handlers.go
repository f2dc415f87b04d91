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
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OutcomeHeader tells the caller a 200 with a null body was a soft failure.
const OutcomeHeader = "X-Provider-Outcome"

// maxContextBytes bounds a web-trigger body.
const maxContextBytes = 64 << 10

// HandleDataProvider serves POST /v1/data-provider.
func HandleDataProvider(p *Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}

		result, err := p.Provide(c.Request.Context(), req)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrInvalidURL) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": "invalid request url", "details": err.Error()})
			return
		}

		switch result.Outcome {
		case OutcomeOK:
			c.JSON(http.StatusOK, result.Response)
		case OutcomeSoftFailure:
			c.Header(OutcomeHeader, "soft-failure")
			c.JSON(http.StatusOK, nil)
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "invalid upstream data", "details": result.Err.Error()})
		}
	}
}

// HandleCallbackRequest serves POST /v1/data-provider/callback.
func HandleCallbackRequest(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload CallbackPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback body", "details": err.Error()})
			return
		}
		HandleCallback(c.Request.Context(), logger, payload)
		c.Status(http.StatusNoContent)
	}
}

// HandleInstalledRequest serves POST /v1/lifecycle/installed.
func HandleInstalledRequest(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var event map[string]any
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lifecycle event", "details": err.Error()})
			return
		}
		HandleInstalled(c.Request.Context(), logger, event)
		c.Status(http.StatusNoContent)
	}
}

// HandleSyncTrigger serves POST /v1/webtrigger/sync. The request body is
// the invocation context; the WebTriggerResponse is written as the HTTP
// response.
func HandleSyncTrigger(t *SyncTrigger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxContextBytes))
		if err != nil {
			body = nil
		}
		resp := t.Trigger(c.Request.Context(), body)
		for k, values := range resp.Headers {
			for _, v := range values {
				c.Writer.Header().Add(k, v)
			}
		}
		c.Status(resp.StatusCode)
		_, _ = c.Writer.WriteString(resp.Body)
	}
}

// HealthCheck serves GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
