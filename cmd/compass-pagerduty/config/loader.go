// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file is read.
const (
	EnvAppID        = "FORGE_APP_ID"
	EnvGatewayURL   = "COMPASS_GATEWAY_URL"
	EnvInfluxURL    = "INFLUXDB_URL"
	EnvInfluxToken  = "INFLUXDB_TOKEN"
	EnvInfluxOrg    = "INFLUXDB_ORG"
	EnvInfluxBucket = "INFLUXDB_BUCKET"
	EnvPort         = "PORT"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

var validate = validator.New()

// DefaultPath is ~/.compass-pagerduty/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".compass-pagerduty", "config.yaml"), nil
}

// Load reads path (creating it with defaults if it does not exist), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	return Parse(data, os.LookupEnv)
}

// Parse decodes YAML over the defaults, applies overrides from lookupEnv
// and validates.
func Parse(data []byte, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config: %w", err)
	}
	if err := applyEnv(&cfg, lookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvAppID, &cfg.AppID)
	set(EnvGatewayURL, &cfg.Compass.GatewayURL)
	set(EnvInfluxURL, &cfg.Influx.URL)
	set(EnvInfluxToken, &cfg.Influx.Token)
	set(EnvInfluxOrg, &cfg.Influx.Org)
	set(EnvInfluxBucket, &cfg.Influx.Bucket)
	set(EnvOTLPEndpoint, &cfg.Telemetry.OTLPEndpoint)

	if v, ok := lookupEnv(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
