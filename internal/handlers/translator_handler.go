package handlers

import (
	"net/http"

	"borneo/internal/config"
	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/translator"
	contextutils "borneo/internal/utils"

	"github.com/gin-gonic/gin"
)

// SubmitInputRequest is the body of POST /v1/session/input
type SubmitInputRequest struct {
	Text string `json:"text"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// LanguagesRequest is the body of PUT /v1/session/languages
type LanguagesRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TranslatorHandler serves the translate-as-you-type session of a browser
type TranslatorHandler struct {
	sessions *translator.SessionManager
	cfg      *config.Config
	logger   *observability.Logger
}

// NewTranslatorHandler creates a new TranslatorHandler instance
func NewTranslatorHandler(sessions *translator.SessionManager, cfg *config.Config, logger *observability.Logger) *TranslatorHandler {
	return &TranslatorHandler{
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// orchestrator resolves the orchestrator of the calling browser. It writes the
// error response itself and returns nil on failure.
func (h *TranslatorHandler) orchestrator(c *gin.Context) *translator.Orchestrator {
	id, err := GetSessionIDFromSession(c)
	if err != nil {
		h.logger.Error(c.Request.Context(), "Failed to save session", err)
		StandardizeHTTPError(c, http.StatusInternalServerError, "Failed to save session", "")
		return nil
	}
	c.Request = c.Request.WithContext(contextutils.WithSessionID(c.Request.Context(), id))
	o, err := h.sessions.Get(id)
	if err != nil {
		HandleAppError(c, err)
		return nil
	}
	return o
}

// parseOptionalLanguage accepts an empty value as "keep the current language"
func parseOptionalLanguage(s string) (models.Language, error) {
	if s == "" {
		return "", nil
	}
	return models.ParseLanguage(s)
}

// GetState returns the current snapshot
func (h *TranslatorHandler) GetState(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_session_state")
	defer observability.FinishSpan(span, nil)

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	span.SetAttributes(observability.AttributeSessionID(o.ID()))
	c.JSON(http.StatusOK, o.State())
}

// SubmitInput records new input, the translation follows after the debounce
func (h *TranslatorHandler) SubmitInput(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_input")
	defer observability.FinishSpan(span, nil)

	var req SubmitInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid input request format", map[string]interface{}{"error": err.Error()})
		HandleValidationError(c, "request", "body", err.Error())
		return
	}
	from, err := parseOptionalLanguage(req.From)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	to, err := parseOptionalLanguage(req.To)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	span.SetAttributes(observability.AttributeSessionID(o.ID()), observability.AttributeTextLength(len(req.Text)))

	if err := o.Submit(req.Text, from, to); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, o.State())
}

// SetLanguages changes the pair, the target is moved when it equals the source
func (h *TranslatorHandler) SetLanguages(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "set_languages")
	defer observability.FinishSpan(span, nil)

	var req LanguagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid languages request format", map[string]interface{}{"error": err.Error()})
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

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	if err := o.SetLanguages(from, to); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, o.State())
}

// Swap exchanges languages and texts
func (h *TranslatorHandler) Swap(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "swap")
	defer observability.FinishSpan(span, nil)

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	if err := o.Swap(); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, o.State())
}

// Retry translates the current input again without waiting for the debounce
func (h *TranslatorHandler) Retry(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "retry")
	defer observability.FinishSpan(span, nil)

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	if err := o.Retry(); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, o.State())
}

// GetHistory lists the session's translations, most recent first
func (h *TranslatorHandler) GetHistory(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_history")
	defer observability.FinishSpan(span, nil)

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": o.History(ctx)})
}

// ClearHistory empties the session's history
func (h *TranslatorHandler) ClearHistory(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "clear_history")
	defer observability.FinishSpan(span, nil)

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	o.ClearHistory(ctx)
	c.Status(http.StatusNoContent)
}

// RestoreHistory loads a history entry into the session
func (h *TranslatorHandler) RestoreHistory(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "restore_history")
	defer observability.FinishSpan(span, nil)

	id := c.Param("id")
	if id == "" {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrMissingRequired, "history id is required"))
		return
	}

	o := h.orchestrator(c)
	if o == nil {
		return
	}
	state, err := o.Restore(ctx, id)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
