package observability

import (
	"context"

	"borneo/internal/config"
	contextutils "borneo/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otel resource: %w", err)
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// TranslatorMetrics holds the counters recorded by the orchestrator and the one-shot path
type TranslatorMetrics struct {
	started    otelmetric.Int64Counter
	completed  otelmetric.Int64Counter
	failed     otelmetric.Int64Counter
	overrides  otelmetric.Int64Counter
	superseded otelmetric.Int64Counter
	fragments  otelmetric.Int64Counter
}

// NewTranslatorMetrics creates the instruments on the global meter provider.
// With metrics disabled the global provider is a no-op.
func NewTranslatorMetrics() *TranslatorMetrics {
	meter := otel.Meter(tracerName)
	m := &TranslatorMetrics{}
	// Instrument creation only fails on invalid names, the returned no-op instruments are safe to use
	m.started, _ = meter.Int64Counter("translator.translations.started",
		otelmetric.WithDescription("Translations that passed debounce and reached the override check"))
	m.completed, _ = meter.Int64Counter("translator.translations.completed",
		otelmetric.WithDescription("Translations that produced a history entry"))
	m.failed, _ = meter.Int64Counter("translator.translations.failed",
		otelmetric.WithDescription("Translations that ended with a provider error"))
	m.overrides, _ = meter.Int64Counter("translator.override.hits",
		otelmetric.WithDescription("Translations answered by the local dictionary"))
	m.superseded, _ = meter.Int64Counter("translator.sessions.superseded",
		otelmetric.WithDescription("Stream sessions silenced by a newer request"))
	m.fragments, _ = meter.Int64Counter("translator.stream.fragments",
		otelmetric.WithDescription("Fragments received from providers"))
	return m
}

func pairAttrs(from, to string) otelmetric.AddOption {
	return otelmetric.WithAttributes(attribute.String("from", from), attribute.String("to", to))
}

// Started records a translation attempt
func (m *TranslatorMetrics) Started(ctx context.Context, from, to string) {
	if m == nil || m.started == nil {
		return
	}
	m.started.Add(ctx, 1, pairAttrs(from, to))
}

// Completed records a successful translation
func (m *TranslatorMetrics) Completed(ctx context.Context, from, to string, override bool) {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.Add(ctx, 1, pairAttrs(from, to))
	if override && m.overrides != nil {
		m.overrides.Add(ctx, 1, pairAttrs(from, to))
	}
}

// Failed records a provider failure
func (m *TranslatorMetrics) Failed(ctx context.Context, from, to string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.Add(ctx, 1, pairAttrs(from, to))
}

// Superseded records a session that was cancelled by a newer one
func (m *TranslatorMetrics) Superseded(ctx context.Context) {
	if m == nil || m.superseded == nil {
		return
	}
	m.superseded.Add(ctx, 1)
}

// Fragment records one streamed fragment
func (m *TranslatorMetrics) Fragment(ctx context.Context) {
	if m == nil || m.fragments == nil {
		return
	}
	m.fragments.Add(ctx, 1)
}
