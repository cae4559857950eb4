package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "borneo/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func setupTestTracer(t *testing.T) {
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(noop.NewTracerProvider())
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
}

func setupGinWithSessions() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("test-secret-key"))
	router.Use(sessions.Sessions("test-session", store))

	return router
}

func TestGinMiddleware_BasicFunctionality(t *testing.T) {
	setupTestTracer(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware("test-service"))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestGinMiddlewareWithErrorHandling_AppError(t *testing.T) {
	setupTestTracer(t)

	router := setupGinWithSessions()
	router.Use(GinMiddlewareWithErrorHandling("test-service"))
	router.GET("/fail", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(SessionIDKey, "abc")
		_ = session.Save()
		_ = c.Error(contextutils.ErrProviderUnavailable)
		c.JSON(http.StatusServiceUnavailable, contextutils.ErrProviderUnavailable.ToJSON())
	})

	req, _ := http.NewRequest("GET", "/fail", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "PROVIDER_UNAVAILABLE")
}

func TestGinMiddlewareWithErrorHandling_NoSessions(t *testing.T) {
	setupTestTracer(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddlewareWithErrorHandling("test-service"))
	router.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})

	req, _ := http.NewRequest("GET", "/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetermineErrorSeverity(t *testing.T) {
	assert.Equal(t, "error", determineErrorSeverity(500, nil))
	assert.Equal(t, "warn", determineErrorSeverity(400, nil))
	assert.Equal(t, "info", determineErrorSeverity(200, nil))

	errs := []*gin.Error{{Err: contextutils.ErrInvalidInput}}
	assert.Equal(t, "warn", determineErrorSeverity(500, errs))
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareWithErrorHandling_AnnotatesSpan(t *testing.T) {
	recorder := recordSpans(t)

	router := setupGinWithSessions()
	router.Use(GinMiddlewareWithErrorHandling("test-service"))
	router.GET("/v1/session/events", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(SessionIDKey, "sesi-1")
		_ = session.Save()
		c.Status(http.StatusOK)
	})
	router.POST("/v1/translate", func(c *gin.Context) {
		_ = c.Error(contextutils.ErrProviderUnavailable)
		c.JSON(http.StatusServiceUnavailable, contextutils.ErrProviderUnavailable.ToJSON())
	})

	req, _ := http.NewRequest("GET", "/v1/session/events", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	req, _ = http.NewRequest("POST", "/v1/translate", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	events := spanAttrs(spans[0])
	assert.Equal(t, "sesi-1", events["session.id"].AsString())
	assert.Equal(t, "sse", events["http.stream"].AsString())
	_, failed := events["error.code"]
	assert.False(t, failed)

	translate := spanAttrs(spans[1])
	assert.Equal(t, "PROVIDER_UNAVAILABLE", translate["error.code"].AsString())
	assert.True(t, translate["error.retryable"].AsBool())
	assert.True(t, translate["error.server_error"].AsBool())
	assert.Equal(t, "/v1/translate", translate["http.route"].AsString())
}

func TestStreamKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		header map[string]string
		want   string
	}{
		{map[string]string{"Upgrade": "websocket"}, "websocket"},
		{map[string]string{"Accept": "text/event-stream"}, "sse"},
		{map[string]string{"Accept": "application/json"}, ""},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request, _ = http.NewRequest("GET", "/v1/translate", nil)
		for k, v := range tt.header {
			c.Request.Header.Set(k, v)
		}
		assert.Equal(t, tt.want, streamKind(c))
	}
}
