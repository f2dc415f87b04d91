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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/AleutianAI/compass-pagerduty/cmd/compass-pagerduty/config"
	"github.com/AleutianAI/compass-pagerduty/pkg/logging"
	"github.com/AleutianAI/compass-pagerduty/services/compass"
	"github.com/AleutianAI/compass-pagerduty/services/dataprovider"
	"github.com/AleutianAI/compass-pagerduty/services/pagerduty"
	"github.com/AleutianAI/compass-pagerduty/services/secrets"
)

// app holds the components built from config. close releases them in
// reverse order of construction.
type app struct {
	logger  *logging.Logger
	store   secrets.Store
	cache   *secrets.CachedStore
	metrics *dataprovider.Metrics
	closers []func() error
}

func newLogger(c config.Config, service string) *logging.Logger {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  c.Log.Dir,
		Service: service,
		JSON:    c.Log.JSON,
	})
}

func newApp(c config.Config, service string) (*app, error) {
	a := &app{logger: newLogger(c, service)}
	a.closers = append(a.closers, a.logger.Close)

	store, err := openSecretStore(c.Secrets, a.logger.Slog())
	if err != nil {
		_ = a.close()
		return nil, err
	}
	a.cache = secrets.NewCachedStore(store.Store)
	a.store = a.cache
	if store.close != nil {
		a.closers = append(a.closers, store.close)
	}
	return a, nil
}

type openedStore struct {
	secrets.Store
	close func() error
}

// openSecretStore builds badger, optionally chained ahead of the
// environment.
func openSecretStore(c config.SecretsConfig, logger *slog.Logger) (openedStore, error) {
	bcfg := secrets.DefaultBadgerConfig(expandHome(c.Path))
	bcfg.InMemory = c.InMemory
	bcfg.Logger = logger

	db, err := secrets.OpenBadgerStore(bcfg)
	if err != nil {
		return openedStore{}, err
	}
	if !c.UseEnv {
		return openedStore{Store: db, close: db.Close}, nil
	}
	chain := secrets.NewChain(logger, db, secrets.NewEnvStore(secrets.DefaultEnvMapping))
	return openedStore{Store: chain, close: db.Close}, nil
}

func (a *app) close() error {
	if a.cache != nil {
		a.cache.Purge()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// provider builds the data provider with every optional component the
// config enables.
func (a *app) provider(c config.Config) *dataprovider.Provider {
	logger := a.logger.Slog()
	client := pagerduty.NewClient(pagerduty.Config{
		BaseURL:       c.PagerDuty.BaseURL,
		Timeout:       c.PagerDuty.Timeout,
		RatePerMinute: c.PagerDuty.RatePerMinute,
		MaxRetries:    c.PagerDuty.MaxRetries,
	}, pagerduty.WithLogger(logger), pagerduty.WithObserver(a.metrics))

	opts := []dataprovider.Option{
		dataprovider.WithLogger(logger),
		dataprovider.WithCustomMetrics(c.Provider.CustomMetrics),
		dataprovider.WithMemo(dataprovider.NewAnalyticsMemo(c.Provider.AnalyticsCacheTTL)),
		dataprovider.WithMetrics(a.metrics),
	}

	if c.Influx.URL != "" {
		influxClient := influxdb2.NewClient(c.Influx.URL, c.Influx.Token)
		a.closers = append(a.closers, func() error {
			influxClient.Close()
			return nil
		})
		sink := dataprovider.NewInfluxSink(influxClient.WriteAPIBlocking(c.Influx.Org, c.Influx.Bucket))
		opts = append(opts, dataprovider.WithSink(sink))
		logger.Info("metric history enabled", "influx_url", c.Influx.URL, "bucket", c.Influx.Bucket)
	}

	return dataprovider.NewProvider(a.store, client, opts...)
}

// syncTrigger builds the sync trigger. The gateway token is read from the
// secret store on each call.
func (a *app) syncTrigger(c config.Config) *dataprovider.SyncTrigger {
	logger := a.logger.Slog()
	gateway := compass.NewClient(c.Compass.GatewayURL,
		compass.WithLogger(logger),
		compass.WithTokenSource(func(ctx context.Context) (string, error) {
			token, err := a.store.Get(ctx, secrets.KeyGatewayToken)
			if errors.Is(err, secrets.ErrSecretNotFound) {
				return "", nil
			}
			return token, err
		}),
	)
	return dataprovider.NewSyncTrigger(gateway, c.AppID,
		dataprovider.WithSyncLogger(logger),
		dataprovider.WithSyncMetrics(a.metrics))
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func secretKey(gateway bool) string {
	if gateway {
		return secrets.KeyGatewayToken
	}
	return secrets.KeyAPIToken
}

func describeKey(key string) string {
	switch key {
	case secrets.KeyGatewayToken:
		return "Compass gateway token"
	default:
		return fmt.Sprintf("PagerDuty API token (%s)", key)
	}
}
