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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/compass-pagerduty/services/dataprovider"
)

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, "cli")
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.provider(cfg).Provide(cmd.Context(), dataprovider.Request{URL: args[0]})
	if err != nil {
		return err
	}
	pretty := fetchPretty || isTerminal(os.Stdout)
	return writeResult(cmd.OutOrStdout(), result, pretty)
}

// writeResult prints the response JSON, or null for a soft failure. Hard
// failures are returned as errors so the exit code is non-zero.
func writeResult(w io.Writer, result dataprovider.Result, pretty bool) error {
	switch result.Outcome {
	case dataprovider.OutcomeHardFailure:
		return result.Err
	case dataprovider.OutcomeSoftFailure:
		_, err := fmt.Fprintln(w, "null")
		if err != nil {
			return err
		}
		return fmt.Errorf("PagerDuty unavailable, try again later: %w", result.Err)
	}

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result.Response)
}
