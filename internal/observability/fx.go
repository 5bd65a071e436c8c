package observability

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/smartinvoice/smartinvoice/internal/config"
	"github.com/smartinvoice/smartinvoice/internal/observability/logger"
	"github.com/smartinvoice/smartinvoice/internal/observability/metrics"
	"github.com/smartinvoice/smartinvoice/internal/observability/tracing"
)

const serviceName = "smartinvoice"

// Module wires logging, tracing and metrics for the whole app.
var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(newTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
	fx.Provide(newMetricsConfig),
	fx.Provide(metrics.NewMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Invoke(func(cfg metrics.Config) {
		metrics.RenderWithConfig(cfg)
	}),
)

func newTracingConfig(cfg *config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      serviceName,
		ServiceVersion:   "1.0.0",
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
		ExporterProtocol: cfg.Tracing.ExporterProtocol,
		SamplingRatio:    cfg.Tracing.SamplingRatio,
	}
}

func newMetricsConfig(cfg *config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
	}
}
