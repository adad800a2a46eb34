// Copyright 2026 The FitDesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config toggles metric emission. When disabled the meter comes from the
// default (noop) provider and every instrument is a no-op.
type Config struct {
	Enabled bool
}

// Meter hands out instruments under a single instrumentation scope.
type Meter struct {
	meter metric.Meter
}

// New builds the service meter. Exporter wiring comes from whatever meter
// provider the entrypoint registered globally.
func New(_ context.Context, cfg Config, serviceName string) (*Meter, error) {
	scope := serviceName
	if !cfg.Enabled {
		scope = "noop"
	}
	return &Meter{meter: otel.Meter(scope)}, nil
}

// GetMeter returns the underlying OTel meter.
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter registers a monotonic int64 counter.
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram registers a float64 histogram with an explicit unit.
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// CreateUpDownCounter registers an int64 counter that may go down, for gauges
// like in-flight requests.
func (m *Meter) CreateUpDownCounter(name, description string) (metric.Int64UpDownCounter, error) {
	counter, err := m.meter.Int64UpDownCounter(name, metric.WithDescription(description))
	if err != nil {
		return nil, fmt.Errorf("create up/down counter %s: %w", name, err)
	}
	return counter, nil
}
