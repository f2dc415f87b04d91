// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/compass-pagerduty/services/dataprovider"
)

func runSync(cmd *cobra.Command, args []string) error {
	raw, err := syncContextBytes(syncSiteID, syncContext)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, "cli")
	if err != nil {
		return err
	}
	defer a.close()

	resp := a.syncTrigger(cfg).Trigger(cmd.Context(), raw)
	return writeTriggerResponse(cmd.OutOrStdout(), resp)
}

// syncContextBytes builds the invocation context from --site, or passes
// --context through.
func syncContextBytes(siteID, rawContext string) ([]byte, error) {
	switch {
	case siteID != "" && rawContext != "":
		return nil, errors.New("use either --site or --context, not both")
	case rawContext != "":
		return []byte(rawContext), nil
	case siteID != "":
		return json.Marshal(map[string]string{
			"installContext": dataprovider.InstallContextPrefix + siteID,
		})
	default:
		return nil, errors.New("one of --site or --context is required")
	}
}

func writeTriggerResponse(w io.Writer, resp dataprovider.WebTriggerResponse) error {
	if _, err := io.WriteString(w, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sync failed with status %d", resp.StatusCode)
	}
	return nil
}
