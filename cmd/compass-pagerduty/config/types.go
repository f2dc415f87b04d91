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
	"time"

	"github.com/AleutianAI/compass-pagerduty/services/dataprovider"
)

// Config is the on-disk configuration of the service and CLI.
type Config struct {
	// AppID is the Forge application id sent to the Compass gateway.
	AppID string `yaml:"app_id"`

	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	PagerDuty PagerDutyConfig `yaml:"pagerduty"`
	Compass   CompassConfig   `yaml:"compass"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Provider  ProviderConfig  `yaml:"provider"`
	Influx    InfluxConfig    `yaml:"influx"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port  int  `yaml:"port" validate:"min=1,max=65535"`
	Debug bool `yaml:"debug"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN ERROR"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir,omitempty"`
}

type PagerDutyConfig struct {
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"min=0"`
	RatePerMinute int           `yaml:"rate_per_minute" validate:"min=0"`
	MaxRetries    int           `yaml:"max_retries" validate:"min=0,max=10"`
}

type CompassConfig struct {
	// GatewayURL is the Compass GraphQL endpoint. Empty disables sync.
	GatewayURL string `yaml:"gateway_url,omitempty" validate:"omitempty,url"`
}

type SecretsConfig struct {
	// Path is the badger directory holding the stored token.
	Path string `yaml:"path"`

	// InMemory keeps secrets in memory only. Used by tests and demos.
	InMemory bool `yaml:"in_memory"`

	// UseEnv falls back to PAGERDUTY_API_TOKEN and COMPASS_API_TOKEN.
	UseEnv bool `yaml:"use_env"`
}

type ProviderConfig struct {
	// AnalyticsCacheTTL enables MTTR memoization when > 0.
	AnalyticsCacheTTL time.Duration `yaml:"analytics_cache_ttl" validate:"min=0"`

	CustomMetrics []dataprovider.CustomMetric `yaml:"custom_metrics" validate:"dive"`
}

type InfluxConfig struct {
	// URL enables the metric history sink when set.
	URL    string `yaml:"url,omitempty" validate:"omitempty,url"`
	Org    string `yaml:"org,omitempty" validate:"required_with=URL"`
	Bucket string `yaml:"bucket,omitempty" validate:"required_with=URL"`

	// Token is read from INFLUXDB_TOKEN only.
	Token string `yaml:"-"`
}

type TelemetryConfig struct {
	TraceExporter string `yaml:"trace_exporter" validate:"omitempty,oneof=none stdout otlp"`
	OTLPEndpoint  string `yaml:"otlp_endpoint,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
		PagerDuty: PagerDutyConfig{
			BaseURL:       "https://api.pagerduty.com",
			Timeout:       30 * time.Second,
			RatePerMinute: 900,
			MaxRetries:    2,
		},
		Secrets: SecretsConfig{
			Path:   "~/.compass-pagerduty/secrets",
			UseEnv: true,
		},
		Provider: ProviderConfig{
			CustomMetrics: []dataprovider.CustomMetric{},
		},
		Telemetry: TelemetryConfig{TraceExporter: "none"},
	}
}
