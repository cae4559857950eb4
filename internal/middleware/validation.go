package middleware

import (
	"bytes"
	"io"

	"borneo/internal/observability"
	contextutils "borneo/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// RequestValidationMiddleware validates JSON request bodies against a named schema
// before the handler runs. The body is restored so handlers can bind it.
func RequestValidationMiddleware(loader *SchemaLoader, schemaName string, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation",
			attribute.String("validation.schema", schemaName),
			attribute.String("http.path", c.Request.URL.Path))
		defer span.End()

		body, err := c.GetRawData()
		if err != nil {
			HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to read request body: %v", err))
			c.Abort()
			return
		}
		// Restore the request body so handlers can read it
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if len(bytes.TrimSpace(body)) == 0 {
			body = []byte("{}")
		}

		if err := loader.ValidateBytes(body, schemaName); err != nil {
			span.SetAttributes(attribute.Bool("validation.passed", false))
			logger.Warn(ctx, "Request validation failed", map[string]interface{}{
				"method":      c.Request.Method,
				"path":        c.Request.URL.Path,
				"schema_name": schemaName,
				"error":       err.Error(),
			})
			HandleAppError(c, err)
			c.Abort()
			return
		}

		span.SetAttributes(attribute.Bool("validation.passed", true))
		c.Next()
	}
}
