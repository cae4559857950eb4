package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"borneo/internal/observability"
	contextutils "borneo/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedSchemas(t *testing.T) {
	loader, err := LoadEmbeddedSchemas()
	require.NoError(t, err)

	for _, name := range []string{
		SchemaSessionInput, SchemaLanguages, SchemaTranslate, SchemaModerate,
		SchemaFacts, SchemaSpeech, SchemaCredentials, SchemaAdminLogin, SchemaWSMessage,
	} {
		assert.Contains(t, loader.Names(), name)
	}
}

func TestSchemaLoader_ValidateBytes(t *testing.T) {
	loader, err := LoadEmbeddedSchemas()
	require.NoError(t, err)

	tests := []struct {
		name   string
		schema string
		body   string
		valid  bool
	}{
		{"translate ok", SchemaTranslate, `{"text":"halo","from":"Indonesian","to":"Bakumpai"}`, true},
		{"translate missing to", SchemaTranslate, `{"text":"halo","from":"Indonesian"}`, false},
		{"translate empty text", SchemaTranslate, `{"text":"","from":"id","to":"bkm"}`, false},
		{"input may be blank", SchemaSessionInput, `{"text":""}`, true},
		{"credentials unknown service", SchemaCredentials, `{"service":"aws","key":"k"}`, false},
		{"facts count too high", SchemaFacts, `{"count":11}`, false},
		{"facts empty body", SchemaFacts, `{}`, true},
		{"ws swap", SchemaWSMessage, `{"type":"swap"}`, true},
		{"ws unknown type", SchemaWSMessage, `{"type":"explode"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loader.ValidateBytes([]byte(tt.body), tt.schema)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, contextutils.ErrValidationFailed, "got %v", err)
			}
		})
	}

	assert.Error(t, loader.ValidateBytes([]byte(`{}`), "missing"))
	assert.ErrorIs(t, loader.ValidateBytes([]byte(`{not json`), SchemaTranslate), contextutils.ErrInvalidFormat)
}

func TestRequestValidationMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	loader, err := LoadEmbeddedSchemas()
	require.NoError(t, err)

	router := gin.New()
	router.POST("/translate", RequestValidationMiddleware(loader, SchemaTranslate, observability.NewNopLogger()), func(c *gin.Context) {
		var body struct {
			Text string `json:"text"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"text": body.Text})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/translate", strings.NewReader(`{"text":"halo","from":"id","to":"bkm"}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"halo"}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/translate", strings.NewReader(`{"text":"halo"}`))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
}
