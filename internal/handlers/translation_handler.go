package handlers

import (
	"io"
	"net/http"
	"strings"

	"borneo/internal/config"
	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/services"
	contextutils "borneo/internal/utils"

	"github.com/gin-gonic/gin"
)

// TranslateRequest is the body of POST /v1/translate
type TranslateRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

// TranslationHandler handles one-shot translation requests
type TranslationHandler struct {
	translationService services.TranslationServiceInterface
	cfg                *config.Config
	logger             *observability.Logger
}

// NewTranslationHandler creates a new TranslationHandler instance
func NewTranslationHandler(translationService services.TranslationServiceInterface, cfg *config.Config, logger *observability.Logger) *TranslationHandler {
	return &TranslationHandler{
		translationService: translationService,
		cfg:                cfg,
		logger:             logger,
	}
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

// TranslateText translates without debounce. Clients sending
// Accept: text/event-stream receive "fragment" events then "done" or "error".
func (h *TranslationHandler) TranslateText(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "translate_text")
	defer observability.FinishSpan(span, nil)

	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid translation request format", map[string]interface{}{"error": err.Error()})
		HandleValidationError(c, "request", "body", err.Error())
		return
	}
	from, err := models.ParseLanguage(req.From)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	to, err := models.ParseLanguage(req.To)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	treq := models.TranslationRequest{Text: req.Text, From: from, To: to}
	span.SetAttributes(append(observability.AttributeLanguagePair(string(from), string(to)), observability.AttributeTextLength(len(req.Text)))...)

	if !wantsEventStream(c) {
		result, err := h.translationService.Translate(ctx, treq)
		if err != nil {
			h.logger.Error(ctx, "Translation failed", err)
			HandleAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	chunks := make(chan string, h.cfg.Translation.StreamBuffer)
	type outcome struct {
		result *models.TranslationResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := h.translationService.TranslateStream(ctx, treq, chunks)
		done <- outcome{result: result, err: err}
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")

	finished := false
	c.Stream(func(_ io.Writer) bool {
		if finished {
			return false
		}
		select {
		case fragment := <-chunks:
			c.SSEvent("fragment", gin.H{"text": fragment})
			return true
		case out := <-done:
			// Fragments sent before the service returned are still buffered
		drain:
			for {
				select {
				case fragment := <-chunks:
					c.SSEvent("fragment", gin.H{"text": fragment})
				default:
					break drain
				}
			}
			finished = true
			if out.err != nil {
				h.logger.Error(ctx, "Streaming translation failed", out.err)
				var appErr *contextutils.AppError
				if !contextutils.AsError(out.err, &appErr) {
					appErr = contextutils.NewAppErrorWithCause(contextutils.ErrorCodeInternalError, contextutils.SeverityError, "Translation failed", out.err.Error(), out.err)
				}
				payload := appErr.ToJSON()
				payload["user_message"] = contextutils.UserMessage(out.err)
				c.SSEvent("error", payload)
				return false
			}
			c.SSEvent("done", out.result)
			return false
		case <-ctx.Done():
			return false
		}
	})
}

// GetLanguages returns the supported language catalog
func (h *TranslationHandler) GetLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": models.Catalog()})
}
