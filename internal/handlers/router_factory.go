package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"borneo/internal/config"
	"borneo/internal/middleware"
	"borneo/internal/observability"
	"borneo/internal/services"
	"borneo/internal/translator"
	"borneo/internal/version"
)

// ServiceName identifies the backend in traces and the route listing
const ServiceName = "borneo-backend"

// When adding new API endpoints, make sure to:
// 1. Add a request schema under middleware/schemas when the route takes a JSON body
// 2. Consider if the endpoint should be public or admin-only

// NewRouter creates the gin engine with all middleware and routes
func NewRouter(
	cfg *config.Config,
	sessionManager *translator.SessionManager,
	translationService services.TranslationServiceInterface,
	learningService services.LearningServiceInterface,
	dictionaryService services.DictionaryServiceInterface,
	credentialsService services.CredentialsServiceInterface,
	schemas *middleware.SchemaLoader,
	logger *observability.Logger,
) *gin.Engine {
	// Setup Gin mode
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))

	// Add HTTP request logging middleware using our observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}
		if statusCode >= 400 {
			if statusCode >= 500 {
				fields["http.error_type"] = "server_error"
			} else {
				fields["http.error_type"] = "client_error"
			}
		}

		if statusCode >= 500 {
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		} else if statusCode >= 400 {
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		} else {
			logger.Debug(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  ServiceName,
			"sessions": sessionManager.Len(),
		})
	})

	// Add OpenTelemetry middleware for HTTP tracing and context propagation with automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling(ServiceName))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Cookie session carries the translator session id and the admin login
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	translatorHandler := NewTranslatorHandler(sessionManager, cfg, logger)
	wsHandler := NewWebSocketHandler(translatorHandler, schemas)
	translationHandler := NewTranslationHandler(translationService, cfg, logger)
	learningHandler := NewLearningHandler(learningService, cfg, logger)
	adminHandler := NewAdminHandlerWithLogger(dictionaryService, credentialsService, cfg, logger)

	validate := func(schema string) gin.HandlerFunc {
		return middleware.RequestValidationMiddleware(schemas, schema, logger)
	}

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Info(ServiceName))
		})
		v1.GET("/languages", translationHandler.GetLanguages)

		session := v1.Group("/session")
		{
			session.GET("/state", translatorHandler.GetState)
			session.POST("/input", validate(middleware.SchemaSessionInput), translatorHandler.SubmitInput)
			session.PUT("/languages", validate(middleware.SchemaLanguages), translatorHandler.SetLanguages)
			session.POST("/swap", translatorHandler.Swap)
			session.POST("/retry", translatorHandler.Retry)
			session.GET("/history", translatorHandler.GetHistory)
			session.DELETE("/history", translatorHandler.ClearHistory)
			session.POST("/history/:id/restore", translatorHandler.RestoreHistory)
			session.GET("/events", translatorHandler.Events)
			session.GET("/ws", wsHandler.Serve)
		}

		v1.POST("/translate", validate(middleware.SchemaTranslate), translationHandler.TranslateText)
		v1.POST("/moderate", validate(middleware.SchemaModerate), learningHandler.Moderate)
		v1.POST("/learn/facts", validate(middleware.SchemaFacts), learningHandler.Facts)
		v1.POST("/speech", validate(middleware.SchemaSpeech), learningHandler.Speech)

		admin := v1.Group("/admin")
		{
			admin.POST("/login", validate(middleware.SchemaAdminLogin), adminHandler.Login)
			admin.POST("/logout", adminHandler.Logout)

			protected := admin.Group("")
			protected.Use(middleware.RequireAdmin())
			{
				protected.POST("/dictionary", middleware.MaxBodySize(cfg.Server.MaxUploadBytes), adminHandler.UploadDictionary)
				protected.GET("/dictionary/uploads", adminHandler.GetUploads)
				protected.GET("/dictionary/lookup", adminHandler.LookupDictionary)
				protected.PUT("/credentials", validate(middleware.SchemaCredentials), adminHandler.SetCredential)
				protected.GET("/credentials", adminHandler.GetCredentials)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/v1/") {
			StandardizeHTTPError(c, http.StatusNotFound, "Not found", c.Request.URL.Path)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Automatic route listing at root path
	routeListing := NewRouteListingHandler(ServiceName)
	routeListing.CollectRoutes(router)
	router.GET("/", routeListing.GetRouteListingJSON)

	return router
}
