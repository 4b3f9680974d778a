// Package telemetry sets up OpenTelemetry metrics for mcpagent.
// Metrics are exported in the Prometheus format and served on /metrics.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Config holds the telemetry settings.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Providers holds the initialized OpenTelemetry providers.
// When telemetry is disabled, Meter is a no-op meter and Shutdown does nothing.
type Providers struct {
	Meter metric.Meter

	meterProvider *sdkmetric.MeterProvider
	serviceName   string
	enabled       bool
}

// Init initializes the OpenTelemetry providers according to the config.
func Init(ctx context.Context, c *Config) (*Providers, error) {
	p := &Providers{
		serviceName: c.ServiceName,
		enabled:     c.Enabled,
	}
	if !c.Enabled {
		p.Meter = noop.NewMeterProvider().Meter(c.ServiceName)
		return p, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", c.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	// the exporter registers itself with the default prometheus registry,
	// which is what promhttp.Handler() serves
	exporter, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(p.meterProvider)
	p.Meter = p.meterProvider.Meter(c.ServiceName)

	return p, nil
}

// IsEnabled returns true if telemetry is enabled.
func (p *Providers) IsEnabled() bool {
	return p.enabled
}

// ServiceName returns the service name used for instrumentation.
func (p *Providers) ServiceName() string {
	return p.serviceName
}

// Shutdown flushes and stops the meter provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
