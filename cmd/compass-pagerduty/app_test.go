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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/compass-pagerduty/cmd/compass-pagerduty/config"
	"github.com/AleutianAI/compass-pagerduty/services/dataprovider"
	"github.com/AleutianAI/compass-pagerduty/services/secrets"
)

func testConfig() config.Config {
	c := config.DefaultConfig()
	c.Secrets.InMemory = true
	c.Secrets.UseEnv = false
	c.Log.Dir = ""
	return c
}

func TestSyncContextBytes(t *testing.T) {
	raw, err := syncContextBytes("ABC", "")
	require.NoError(t, err)
	site, ok := dataprovider.ParseInstallContext(raw).SiteID()
	assert.True(t, ok)
	assert.Equal(t, "ABC", site)

	raw, err = syncContextBytes("", `{"installContext":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"installContext":"x"}`, string(raw))

	_, err = syncContextBytes("", "")
	assert.Error(t, err)
	_, err = syncContextBytes("A", "{}")
	assert.Error(t, err)
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, dataprovider.OK(dataprovider.UnknownResponse()), false))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), `"providerId":"pd:unknown"`)

	buf.Reset()
	require.NoError(t, writeResult(&buf, dataprovider.OK(dataprovider.UnknownResponse()), true))
	assert.Contains(t, buf.String(), "\n  \"providerId\": \"pd:unknown\"")

	buf.Reset()
	err := writeResult(&buf, dataprovider.SoftFailure(errors.New("503")), false)
	assert.Error(t, err)
	assert.Equal(t, "null\n", buf.String())

	buf.Reset()
	hard := &dataprovider.ValidationError{Stage: dataprovider.StageIncidents, ServiceID: "P1", Err: errors.New("bad")}
	err = writeResult(&buf, dataprovider.HardFailure(hard), false)
	assert.ErrorAs(t, err, &hard)
	assert.Empty(t, buf.String())
}

func TestWriteTriggerResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTriggerResponse(&buf, dataprovider.WebTriggerResponse{Body: "{}\n", StatusCode: http.StatusOK}))
	assert.Equal(t, "{}\n", buf.String())

	err := writeTriggerResponse(&buf, dataprovider.WebTriggerResponse{Body: "{}\n", StatusCode: http.StatusInternalServerError})
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".compass-pagerduty"), expandHome("~/.compass-pagerduty"))
	assert.Equal(t, "/data/secrets", expandHome("/data/secrets"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}

func TestSecretKey(t *testing.T) {
	assert.Equal(t, secrets.KeyAPIToken, secretKey(false))
	assert.Equal(t, secrets.KeyGatewayToken, secretKey(true))
	assert.Contains(t, describeKey(secrets.KeyGatewayToken), "gateway")
}

func TestNewApp_InMemoryStoreWithEnvFallback(t *testing.T) {
	t.Setenv("PAGERDUTY_API_TOKEN", "from-env")
	c := testConfig()
	c.Secrets.UseEnv = true

	a, err := newApp(c, "test")
	require.NoError(t, err)
	defer a.close()

	ctx := context.Background()
	token, err := a.store.Get(ctx, secrets.KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)

	require.NoError(t, a.store.Set(ctx, secrets.KeyAPIToken, "from-store"))
	token, err = a.store.Get(ctx, secrets.KeyAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "from-store", token)
}

func TestApp_ProviderWithoutTokenReturnsUnknown(t *testing.T) {
	a, err := newApp(testConfig(), "test")
	require.NoError(t, err)
	defer a.close()

	result, err := a.provider(testConfig()).Provide(context.Background(), dataprovider.Request{
		URL: "https://acme.pagerduty.com/service-directory/P1",
	})
	require.NoError(t, err)
	assert.Equal(t, dataprovider.OutcomeOK, result.Outcome)

	data, err := json.Marshal(result.Response)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pd:unknown")
}

func TestApp_SyncTriggerWithoutGateway(t *testing.T) {
	c := testConfig()
	c.AppID = "app-1"
	a, err := newApp(c, "test")
	require.NoError(t, err)
	defer a.close()

	resp := a.syncTrigger(c).Trigger(context.Background(), []byte(`{"installContext":"ari:cloud:compass::site/ABC"}`))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Body, "gateway url not configured")
}

func TestReadToken_PipedInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("u+piped\nignored\n"))
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	token, err := readToken(cmd, os.Stdin)
	require.NoError(t, err)
	assert.Equal(t, "u+piped", token)
	assert.Empty(t, stderr.String(), "no prompt for piped input")

	cmd.SetIn(strings.NewReader(""))
	_, err = readToken(cmd, os.Stdin)
	assert.Error(t, err)
}
