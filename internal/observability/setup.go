package observability

import (
	"context"
	"os"

	"borneo/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// SetupObservability builds the logger and installs the global tracer and meter
// providers enabled in cfg. serviceName, when set, overrides cfg.ServiceName.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string) (tp trace.TracerProvider, mp *metric.MeterProvider, logger *Logger, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}
	for key, value := range map[string]string{
		"OTEL_SERVICE_NAME":    cfg.ServiceName,
		"OTEL_SERVICE_VERSION": cfg.ServiceVersion,
	} {
		if err := os.Setenv(key, value); err != nil {
			return nil, nil, nil, err
		}
	}

	logger = NewLogger(cfg)
	ctx := context.Background()

	if cfg.EnableTracing {
		tp, err = newTracerProvider(cfg)
		if err != nil {
			return nil, nil, logger, err
		}
		otel.SetTracerProvider(tp)
		InitTracing(cfg)
		InitGlobalTracer()
		logger.Info(ctx, "Tracing enabled", map[string]interface{}{
			"service_name": cfg.ServiceName,
			"auto_sdk":     cfg.UseAutoSDK,
		})
	}

	if cfg.EnableMetrics {
		mp, err = InitMetrics(cfg)
		if err != nil {
			return tp, nil, logger, err
		}
		otel.SetMeterProvider(mp)
		logger.Info(ctx, "Metrics enabled", map[string]interface{}{"service_name": cfg.ServiceName})
	}

	return tp, mp, logger, nil
}

func newTracerProvider(cfg *config.OpenTelemetryConfig) (trace.TracerProvider, error) {
	if cfg.UseAutoSDK {
		return autosdk.TracerProvider(), nil
	}
	return InitStandardTracing(cfg)
}

// ShutdownTracerProvider flushes the tracer provider when it supports shutdown.
// The auto SDK provider does not.
func ShutdownTracerProvider(ctx context.Context, tp trace.TracerProvider) error {
	if s, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
		return s.Shutdown(ctx)
	}
	return nil
}
