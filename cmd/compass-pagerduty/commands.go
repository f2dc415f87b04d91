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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/compass-pagerduty/cmd/compass-pagerduty/config"
)

// --- Global Command Variables ---
var (
	configPath string
	cfg        config.Config

	tokenValue   string
	tokenGateway bool
	fetchPretty  bool
	syncSiteID   string
	syncContext  string

	rootCmd = &cobra.Command{
		Use:   "compass-pagerduty",
		Short: "PagerDuty data provider for Atlassian Compass",
		Long: `compass-pagerduty reads incident analytics and incidents from PagerDuty
and serves them to Compass as metrics and events.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP data provider",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage the stored PagerDuty API token",
	}
	tokenSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Store the API token (from --value or stdin)",
		Args:  cobra.NoArgs,
		RunE:  runTokenSet, // Defined in cmd_token.go
	}
	tokenStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show whether a token is stored, without printing it",
		Args:  cobra.NoArgs,
		RunE:  runTokenStatus,
	}
	tokenClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored token",
		Args:  cobra.NoArgs,
		RunE:  runTokenClear,
	}

	fetchCmd = &cobra.Command{
		Use:   "fetch [url]",
		Short: "Run the data provider once for a PagerDuty service URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runFetch, // Defined in cmd_fetch.go
	}

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Ask Compass to synchronize link associations for a site",
		Args:  cobra.NoArgs,
		RunE:  runSync, // Defined in cmd_sync.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.compass-pagerduty/config.yaml)")

	tokenSetCmd.Flags().StringVar(&tokenValue, "value", "", "token value; read from stdin when omitted")
	tokenCmd.PersistentFlags().BoolVar(&tokenGateway, "gateway", false, "operate on the Compass gateway token instead")
	tokenCmd.AddCommand(tokenSetCmd, tokenStatusCmd, tokenClearCmd)

	fetchCmd.Flags().BoolVar(&fetchPretty, "pretty", false, "indent output even when stdout is not a terminal")

	syncCmd.Flags().StringVar(&syncSiteID, "site", "", "Compass site (cloud) id")
	syncCmd.Flags().StringVar(&syncContext, "context", "", "raw invocation context JSON, instead of --site")

	rootCmd.AddCommand(serveCmd, tokenCmd, fetchCmd, syncCmd)
}

func loadConfig() error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}
