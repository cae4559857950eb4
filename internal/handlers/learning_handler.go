package handlers

import (
	"encoding/base64"
	"net/http"

	"borneo/internal/config"
	"borneo/internal/observability"
	"borneo/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ModerateRequest is the body of POST /v1/moderate
type ModerateRequest struct {
	Text string `json:"text"`
}

// FactsRequest is the body of POST /v1/learn/facts
type FactsRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// SpeechRequest is the body of POST /v1/speech
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// LearningHandler serves moderation, cultural facts and speech
type LearningHandler struct {
	learningService services.LearningServiceInterface
	cfg             *config.Config
	logger          *observability.Logger
}

// NewLearningHandler creates a new LearningHandler instance
func NewLearningHandler(learningService services.LearningServiceInterface, cfg *config.Config, logger *observability.Logger) *LearningHandler {
	return &LearningHandler{
		learningService: learningService,
		cfg:             cfg,
		logger:          logger,
	}
}

// Moderate classifies text. Failures fail open, so this never errors on provider problems.
func (h *LearningHandler) Moderate(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "moderate")
	defer observability.FinishSpan(span, nil)

	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request", "body", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.learningService.Moderate(ctx, req.Text))
}

// Facts returns short cultural facts
func (h *LearningHandler) Facts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "facts")
	defer observability.FinishSpan(span, nil)

	var req FactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request", "body", err.Error())
		return
	}
	span.SetAttributes(attribute.Int("facts.requested", req.Count))

	facts, err := h.learningService.Facts(ctx, req.Topic, req.Count)
	if err != nil {
		h.logger.Error(ctx, "Failed to generate facts", err, map[string]interface{}{"topic": req.Topic})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facts": facts})
}

// Speech returns synthesized audio as base64
func (h *LearningHandler) Speech(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "speech")
	defer observability.FinishSpan(span, nil)

	var req SpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request", "body", err.Error())
		return
	}

	audio, err := h.learningService.Speech(ctx, req.Text, req.Voice)
	if err != nil {
		h.logger.Error(ctx, "Failed to synthesize speech", err)
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"audio":     base64.StdEncoding.EncodeToString(audio.Data),
		"mime_type": audio.MimeType,
	})
}
