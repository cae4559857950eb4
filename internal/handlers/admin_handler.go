// Package handlers provides the HTTP handlers of the Borneo translation API.
package handlers

import (
	"net/http"
	"strings"

	"borneo/internal/config"
	"borneo/internal/middleware"
	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/services"
	contextutils "borneo/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// AdminLoginRequest is the body of POST /v1/admin/login
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialRequest is the body of PUT /v1/admin/credentials
type CredentialRequest struct {
	Service string `json:"service"`
	Key     string `json:"key"`
}

// DictionaryUploadForm is the multipart form of POST /v1/admin/dictionary
type DictionaryUploadForm struct {
	From string `form:"from" validate:"required"`
	To   string `form:"to" validate:"required"`
}

// AdminHandler serves the dictionary and credential administration routes
type AdminHandler struct {
	dictionaryService  services.DictionaryServiceInterface
	credentialsService services.CredentialsServiceInterface
	config             *config.Config
	logger             *observability.Logger
}

// NewAdminHandlerWithLogger creates a new AdminHandler with the provided services and logger.
func NewAdminHandlerWithLogger(dictionaryService services.DictionaryServiceInterface, credentialsService services.CredentialsServiceInterface, cfg *config.Config, logger *observability.Logger) *AdminHandler {
	return &AdminHandler{
		dictionaryService:  dictionaryService,
		credentialsService: credentialsService,
		config:             cfg,
		logger:             logger,
	}
}

// Login checks the configured admin username and bcrypt hash
func (h *AdminHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_login")
	defer observability.FinishSpan(span, nil)

	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}
	span.SetAttributes(
		attribute.String("auth.username", req.Username),
		attribute.Bool("auth.password_provided", req.Password != ""),
	)

	if h.config.Server.AdminPasswordHash == "" {
		h.logger.Warn(ctx, "Admin login attempted but no password hash is configured")
		HandleAppError(c, contextutils.WrapError(contextutils.ErrServiceUnavailable, "admin login is not configured"))
		return
	}
	if req.Username != h.config.Server.AdminUsername ||
		bcrypt.CompareHashAndPassword([]byte(h.config.Server.AdminPasswordHash), []byte(req.Password)) != nil {
		h.logger.Warn(ctx, "Admin authentication failed", map[string]interface{}{"username": req.Username})
		HandleAppError(c, contextutils.ErrInvalidCredentials)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.AdminUsernameKey, req.Username)
	if err := session.Save(); err != nil {
		h.logger.Error(ctx, "Failed to save session", err)
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	h.logger.Info(ctx, "Admin logged in", map[string]interface{}{"username": req.Username})
	c.JSON(http.StatusOK, gin.H{"success": true, "username": req.Username})
}

// Logout drops the admin login. The translator session id is kept.
func (h *AdminHandler) Logout(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "admin_logout")
	defer observability.FinishSpan(span, nil)

	session := sessions.Default(c)
	session.Delete(middleware.AdminUsernameKey)
	if err := session.Save(); err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UploadDictionary imports a "source,translation" file for a language pair
func (h *AdminHandler) UploadDictionary(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "upload_dictionary")
	defer observability.FinishSpan(span, nil)

	var form DictionaryUploadForm
	if err := c.ShouldBind(&form); err != nil {
		HandleValidationError(c, "form", "multipart", err.Error())
		return
	}
	if err := contextutils.ValidateStruct(form); err != nil {
		HandleAppError(c, err)
		return
	}
	from, err := models.ParseLanguage(form.From)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	to, err := models.ParseLanguage(form.To)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrMissingRequired, "file is required"))
		return
	}
	name := strings.ToLower(fileHeader.Filename)
	if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".txt") {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "only .csv and .txt files are accepted"))
		return
	}
	span.SetAttributes(attribute.String("file.name", fileHeader.Filename), attribute.Int64("file.size", fileHeader.Size))

	f, err := fileHeader.Open()
	if err != nil {
		HandleAppError(c, contextutils.WrapError(err, "failed to open upload"))
		return
	}
	defer func() { _ = f.Close() }()

	item, err := h.dictionaryService.Import(ctx, fileHeader.Filename, from, to, f)
	if err != nil {
		h.logger.Error(ctx, "Dictionary import failed", err, map[string]interface{}{"file_name": fileHeader.Filename})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetUploads lists the dictionary uploads, most recent first
func (h *AdminHandler) GetUploads(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_dictionary_uploads")
	defer observability.FinishSpan(span, nil)

	items, err := h.dictionaryService.Uploads(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": items})
}

// LookupDictionary returns the override stored for a phrase
func (h *AdminHandler) LookupDictionary(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "lookup_dictionary")
	defer observability.FinishSpan(span, nil)

	from, err := models.ParseLanguage(c.Query("from"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	to, err := models.ParseLanguage(c.Query("to"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	text := c.Query("text")
	if strings.TrimSpace(text) == "" {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrMissingRequired, "text is required"))
		return
	}

	translation, found, err := h.dictionaryService.Lookup(ctx, from, to, text)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if !found {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "no override for %q", text))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":        from,
		"to":          to,
		"source":      text,
		"translation": translation,
	})
}

// SetCredential stores an API key, a gemini key takes effect immediately
func (h *AdminHandler) SetCredential(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "set_credential")
	defer observability.FinishSpan(span, nil)

	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request", "body", err.Error())
		return
	}
	span.SetAttributes(attribute.String("credential.service", req.Service))

	if err := h.credentialsService.Set(ctx, req.Service, req.Key); err != nil {
		h.logger.Error(ctx, "Failed to store credential", err, map[string]interface{}{"service": req.Service})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "service": req.Service})
}

// GetCredentials lists the stored keys, masked
func (h *AdminHandler) GetCredentials(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_credentials")
	defer observability.FinishSpan(span, nil)

	creds, err := h.credentialsService.List(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": creds})
}
