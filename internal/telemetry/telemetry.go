// Package telemetry installs the OpenTelemetry meter provider and the
// service metrics recorded on it.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drilldown/backend/internal/config"
	"github.com/drilldown/backend/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Telemetry struct {
	// MeterProvider is nil when export is disabled.
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *metrics.Metrics
}

// Init exports metrics over OTLP/gRPC when cfg names an endpoint. Without
// one the counters stay on the global no-op provider.
func Init(ctx context.Context, cfg config.TelemetryConfig, serviceName string, logger *slog.Logger) (*Telemetry, error) {
	t := &Telemetry{}

	if cfg.OTLPEndpoint == "" {
		logger.Info("OTel metrics export disabled, no OTLP endpoint configured")
	} else {
		mp, err := initMeterProvider(ctx, cfg, serviceName)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		t.MeterProvider = mp
		logger.Info("OTel metrics initialized", "endpoint", cfg.OTLPEndpoint, "interval", cfg.ExportInterval())
	}

	m, err := metrics.NewFromGlobal(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	t.Metrics = m
	return t, nil
}

func initMeterProvider(ctx context.Context, cfg config.TelemetryConfig, serviceName string) (*sdkmetric.MeterProvider, error) {
	res, err := NewResource(ctx, serviceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.ExportInterval()))
	return NewMeterProvider(res, reader), nil
}

// NewResource describes this service to the collector.
func NewResource(ctx context.Context, serviceName, serviceVersion string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func NewMeterProvider(res *resource.Resource, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
}

// Shutdown flushes pending metrics. It is a no-op when export is disabled.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	return t.MeterProvider.Shutdown(ctx)
}
