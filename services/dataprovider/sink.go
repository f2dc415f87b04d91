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
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// MeasurementName is the InfluxDB measurement written by InfluxSink.
const MeasurementName = "compass_metric"

// MetricSink records computed metric values outside the response.
type MetricSink interface {
	RecordMetric(ctx context.Context, serviceID string, metric BuiltinMetric, value int64, at time.Time) error
}

// InfluxSink writes one point per metric value:
//
//	compass_metric,service=<id>,metric=<name> value=<n> <at>
type InfluxSink struct {
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink wraps a blocking write API.
func NewInfluxSink(writeAPI api.WriteAPIBlocking) *InfluxSink {
	return &InfluxSink{writeAPI: writeAPI}
}

func (s *InfluxSink) RecordMetric(ctx context.Context, serviceID string, metric BuiltinMetric, value int64, at time.Time) error {
	p := influxdb2.NewPoint(
		MeasurementName,
		map[string]string{
			"service": serviceID,
			"metric":  string(metric),
		},
		map[string]interface{}{
			"value": value,
		},
		at.UTC(),
	)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write %s point: %w", metric, err)
	}
	return nil
}
