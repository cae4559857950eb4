package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "borneo"

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer(tracerName)
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		globalTracer = otel.Tracer(tracerName)
	}
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetGlobalTracer()
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceTranslatorFunction starts a new span for an orchestrator function.
func TraceTranslatorFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "translator", functionName, attributes...)
}

// TraceProviderFunction starts a new span for a translation provider call.
func TraceProviderFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "provider", functionName, attributes...)
}

// TraceStoreFunction starts a new span for a repository operation.
func TraceStoreFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "store", functionName, attributes...)
}

// TraceDictionaryFunction starts a new span for a dictionary service function.
func TraceDictionaryFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "dictionary", functionName, attributes...)
}

// TraceLearningFunction starts a new span for a learning feature (facts, moderation, speech).
func TraceLearningFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "learning", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// AttributeLanguagePair returns tracing attributes for a source and target language.
func AttributeLanguagePair(from, to string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("translation.from", from),
		attribute.String("translation.to", to),
	}
}

// AttributeTextLength returns a tracing attribute for an input length.
func AttributeTextLength(n int) attribute.KeyValue {
	return attribute.Int("translation.text_length", n)
}

// AttributeSessionID returns a tracing attribute for a translator session.
func AttributeSessionID(id string) attribute.KeyValue {
	return attribute.String("session.id", id)
}

// AttributeProvider returns a tracing attribute for a provider name.
func AttributeProvider(name string) attribute.KeyValue {
	return attribute.String("provider.name", name)
}

// AttributeGeneration returns a tracing attribute for an orchestrator generation.
func AttributeGeneration(gen uint64) attribute.KeyValue {
	return attribute.Int64("translator.generation", int64(gen))
}
