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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "config file was not created")
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.pagerduty.com", cfg.PagerDuty.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.PagerDuty.Timeout)
	assert.Equal(t, 2, cfg.PagerDuty.MaxRetries)
	assert.Zero(t, cfg.Provider.AnalyticsCacheTTL)
	assert.Empty(t, cfg.Provider.CustomMetrics)
}

func TestCreateDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, createDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, DefaultConfig().PagerDuty, cfg.PagerDuty)
	assert.Equal(t, DefaultConfig().Secrets, cfg.Secrets)
}

func TestParse_File(t *testing.T) {
	data := []byte(`
app_id: forge-app-1
server:
  port: 9090
  debug: true
log:
  level: debug
  json: true
pagerduty:
  base_url: https://pd.internal.test
  timeout: 5s
  rate_per_minute: 60
  max_retries: 0
compass:
  gateway_url: https://api.atlassian.com/graphql
secrets:
  path: /var/lib/compass-pagerduty
  in_memory: false
  use_env: false
provider:
  analytics_cache_ttl: 10m
  custom_metrics:
    - name: Open incidents
      description: Incidents not yet resolved
      format:
        suffix: incidents
influx:
  url: http://influx:8086
  org: ops
  bucket: compass
telemetry:
  trace_exporter: otlp
  otlp_endpoint: collector:4317
`)
	cfg, err := Parse(data, noEnv)
	require.NoError(t, err)

	assert.Equal(t, "forge-app-1", cfg.AppID)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.PagerDuty.Timeout)
	assert.Equal(t, 60, cfg.PagerDuty.RatePerMinute)
	assert.Equal(t, 0, cfg.PagerDuty.MaxRetries)
	assert.Equal(t, "https://api.atlassian.com/graphql", cfg.Compass.GatewayURL)
	assert.False(t, cfg.Secrets.UseEnv)
	assert.Equal(t, 10*time.Minute, cfg.Provider.AnalyticsCacheTTL)
	require.Len(t, cfg.Provider.CustomMetrics, 1)
	assert.Equal(t, "Open incidents", cfg.Provider.CustomMetrics[0].Name)
	require.NotNil(t, cfg.Provider.CustomMetrics[0].Format)
	assert.Equal(t, "incidents", cfg.Provider.CustomMetrics[0].Format.Suffix)
	assert.Equal(t, "ops", cfg.Influx.Org)
	assert.Equal(t, "otlp", cfg.Telemetry.TraceExporter)
}

func TestParse_EnvOverrides(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  port: 9090\n"), envMap(map[string]string{
		EnvAppID:        "env-app",
		EnvPort:         "7070",
		EnvGatewayURL:   "https://gateway.test/graphql",
		EnvInfluxURL:    "http://influx:8086",
		EnvInfluxToken:  "influx-secret",
		EnvInfluxOrg:    "org",
		EnvInfluxBucket: "bucket",
		EnvOTLPEndpoint: "otel:4317",
	}))
	require.NoError(t, err)

	assert.Equal(t, "env-app", cfg.AppID)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "https://gateway.test/graphql", cfg.Compass.GatewayURL)
	assert.Equal(t, "influx-secret", cfg.Influx.Token)
	assert.Equal(t, "otel:4317", cfg.Telemetry.OTLPEndpoint)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "server: [\n"},
		{name: "port out of range", yaml: "server:\n  port: 70000\n"},
		{name: "bad base url", yaml: "pagerduty:\n  base_url: not-a-url\n"},
		{name: "too many retries", yaml: "pagerduty:\n  max_retries: 50\n"},
		{name: "unknown exporter", yaml: "telemetry:\n  trace_exporter: zipkin\n"},
		{name: "unknown log level", yaml: "log:\n  level: loud\n"},
		{name: "custom metric without name", yaml: "provider:\n  custom_metrics:\n    - description: x\n"},
		{name: "influx without bucket", yaml: "influx:\n  url: http://influx:8086\n  org: ops\n"},
		{name: "bad port env", env: map[string]string{EnvPort: "eighty"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, ".compass-pagerduty", filepath.Base(filepath.Dir(path)))
}
