// Package main provides the main entry point for the Borneo translation backend server.
// It sets up the HTTP server, storage, providers, translator sessions and API routes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"borneo/internal/config"
	"borneo/internal/di"
	"borneo/internal/handlers"
	"borneo/internal/observability"
	"borneo/internal/translator"
	contextutils "borneo/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	sessions  *translator.SessionManager
	router    *gin.Engine
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	sessions, err := container.GetSessionManager()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get session manager")
	}

	translationService, err := container.GetTranslationService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get translation service")
	}

	learningService, err := container.GetLearningService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get learning service")
	}

	dictionaryService, err := container.GetDictionaryService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get dictionary service")
	}

	credentialsService, err := container.GetCredentialsService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get credentials service")
	}

	schemas, err := container.GetSchemaLoader()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get schema loader")
	}

	router := handlers.NewRouter(
		container.GetConfig(),
		sessions,
		translationService,
		learningService,
		dictionaryService,
		credentialsService,
		schemas,
		container.GetLogger(),
	)

	return &Application{
		container: container,
		sessions:  sessions,
		router:    router,
	}, nil
}

// Run serves HTTP and runs the idle session janitor until ctx is cancelled or either fails
func (a *Application) Run(ctx context.Context, port string) error {
	logger := a.container.GetLogger()
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: a.router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return contextutils.WrapError(err, "server failed")
		}
		return nil
	})
	g.Go(func() error {
		return a.sessions.Run(gctx, config.SessionJanitorInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
		defer cancel()
		// Streams stay open until their sessions close, so close them first
		a.sessions.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "HTTP server shutdown incomplete", map[string]interface{}{"error": err.Error()})
		}
		return nil
	})
	return g.Wait()
}

// Shutdown gracefully shuts down the application
func (a *Application) Shutdown(ctx context.Context) error {
	return a.container.Shutdown(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup observability (tracing/metrics/logging)
	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, handlers.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.TelemetryFlushTimeout)
		defer shutdownCancel()

		if tp != nil {
			if err := observability.ShutdownTracerProvider(shutdownCtx, tp); err != nil {
				logger.Warn(shutdownCtx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error(), "provider": "tracer"})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error(), "provider": "meter"})
			}
		}
		_ = logger.Sync()
	}()

	logger.Info(ctx, "Starting borneo backend service", map[string]interface{}{
		"port":             cfg.Server.Port,
		"logLevel":         cfg.Server.LogLevel,
		"storage_backend":  cfg.Storage.Backend,
		"default_provider": cfg.Translation.DefaultProvider,
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx, cfg.Server.Port)
	if runErr != nil {
		logger.Error(ctx, "Application failed", runErr)
	} else {
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error during application shutdown", err)
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully")
}
