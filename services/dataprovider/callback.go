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
	"context"
	"log/slog"
)

// CallbackPayload is what Compass reports after consuming a response.
type CallbackPayload struct {
	Success      bool   `json:"success"`
	URL          string `json:"url"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// HandleCallback logs a failed delivery. Successful callbacks are ignored.
func HandleCallback(ctx context.Context, logger *slog.Logger, payload CallbackPayload) {
	if payload.Success {
		return
	}
	logger.ErrorContext(ctx, "data provider callback reported failure",
		"url", payload.URL,
		"error_message", payload.ErrorMessage)
}

// HandleInstalled logs an app installation event.
func HandleInstalled(ctx context.Context, logger *slog.Logger, event map[string]any) {
	logger.InfoContext(ctx, "app installed", "install", event)
}
