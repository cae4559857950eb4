package observability

import (
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "borneo/internal/utils"
)

// SessionIDKey is the cookie session key holding the translator session id
const SessionIDKey = "session_id"

// GinMiddleware creates OpenTelemetry middleware for Gin HTTP requests
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// streamKind reports how the response is delivered: "sse", "websocket" or "".
func streamKind(c *gin.Context) string {
	switch {
	case strings.EqualFold(c.GetHeader("Upgrade"), "websocket"):
		return "websocket"
	case strings.Contains(c.GetHeader("Accept"), "text/event-stream"),
		strings.HasSuffix(c.FullPath(), "/events"):
		return "sse"
	default:
		return ""
	}
}

// sessionID returns the translator session id when the sessions middleware ran
func sessionID(c *gin.Context) string {
	if _, exists := c.Get(sessions.DefaultKey); !exists {
		return ""
	}
	id, _ := sessions.Default(c).Get(SessionIDKey).(string)
	return id
}

// firstAppError returns the first AppError recorded on the gin context
func firstAppError(errs []*gin.Error) *contextutils.AppError {
	for _, e := range errs {
		var appErr *contextutils.AppError
		if contextutils.AsError(e.Err, &appErr) {
			return appErr
		}
	}
	return nil
}

// GinMiddlewareWithErrorHandling wraps otelgin and annotates the request span with the
// translator session, the streaming mode and, for failed requests, the AppError code.
func GinMiddlewareWithErrorHandling(serviceName string) gin.HandlerFunc {
	otelMiddleware := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		// otelgin runs the rest of the chain itself
		otelMiddleware(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if id := sessionID(c); id != "" {
			span.SetAttributes(AttributeSessionID(id))
		}
		if kind := streamKind(c); kind != "" {
			span.SetAttributes(attribute.String("http.stream", kind))
		}

		statusCode := c.Writer.Status()
		if statusCode < 400 {
			return
		}

		appErr := firstAppError(c.Errors)
		severity := determineErrorSeverity(statusCode, c.Errors)
		errorMsg := "client error"
		if statusCode >= 500 {
			errorMsg = "server error"
		}
		switch {
		case appErr != nil:
			errorMsg = appErr.Message
			span.SetAttributes(
				attribute.String("error.code", string(appErr.Code)),
				attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
			)
		case len(c.Errors) > 0:
			errorMsg = c.Errors.Last().Error()
		}

		span.RecordError(errors.New(errorMsg))
		span.SetStatus(codes.Error, errorMsg)
		span.SetAttributes(
			attribute.Int("http.status_code", statusCode),
			attribute.String("http.route", c.FullPath()),
			attribute.String("error.handler", c.HandlerName()),
			attribute.String("error.severity", severity),
			attribute.Bool("error.server_error", statusCode >= 500),
		)
		if c.Request.ContentLength > 0 {
			span.SetAttributes(attribute.Int64("error.request_size", c.Request.ContentLength))
		}
	}
}

// determineErrorSeverity determines the severity level based on status code and error types
func determineErrorSeverity(statusCode int, errs []*gin.Error) string {
	if appErr := firstAppError(errs); appErr != nil {
		return string(appErr.Severity)
	}

	switch {
	case statusCode >= 500:
		return string(contextutils.SeverityError)
	case statusCode >= 400:
		return string(contextutils.SeverityWarn)
	default:
		return string(contextutils.SeverityInfo)
	}
}
