package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"borneo/internal/config"
	"borneo/internal/observability"
	contextutils "borneo/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const userAgent = "borneo-translator/1.0"

// maxSSELineBytes bounds a single server-sent event line
const maxSSELineBytes = 1 << 20

// newProviderHTTPClient creates an instrumented HTTP client for provider calls.
// The timeout covers the whole stream, cancellation comes from the request context.
func newProviderHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = config.ProviderRequestTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}
}

// statusError maps a non-200 provider response to an application error
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return contextutils.WrapErrorf(contextutils.ErrProviderNotConfigured, "provider rejected credentials: status %d: %s", resp.StatusCode, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return contextutils.WrapErrorf(contextutils.ErrRateLimit, "provider rate limit: %s", msg)
	case resp.StatusCode >= 500:
		return contextutils.WrapErrorf(contextutils.ErrProviderUnavailable, "provider returned status %d: %s", resp.StatusCode, msg)
	default:
		return contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "provider returned status %d: %s", resp.StatusCode, msg)
	}
}

// closeBody closes a response body, logging failures
func closeBody(ctx context.Context, logger *observability.Logger, body io.Closer) {
	if err := body.Close(); err != nil {
		logger.Warn(ctx, "Failed to close provider response body", map[string]interface{}{"error": err.Error()})
	}
}

// readSSE calls onData for every "data:" line of an event stream until onData
// reports done, the stream ends, or the context is cancelled.
func readSSE(ctx context.Context, body io.Reader, onData func(data string) (done bool, err error)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}
		done, err := onData(data)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "error reading streaming response: %w", err)
	}
	return nil
}

// sendChunk delivers a fragment unless the context is cancelled first
func sendChunk(ctx context.Context, chunks chan<- string, fragment string) error {
	select {
	case chunks <- fragment:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transportError classifies a failed HTTP round trip
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return contextutils.FromContext(ctx, err)
	}
	return contextutils.WrapErrorf(contextutils.ErrProviderUnavailable, "http client error: %w", err)
}

func joinURL(base, path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.TrimLeft(path, "/"))
}
