// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"sync"

	"borneo/internal/config"
	"borneo/internal/middleware"
	"borneo/internal/observability"
	"borneo/internal/services"
	"borneo/internal/store"
	"borneo/internal/translator"
	contextutils "borneo/internal/utils"
)

// Service names
const (
	serviceStore       = "store"
	serviceProviders   = "providers"
	serviceCredentials = "credentials"
	serviceTranslation = "translation"
	serviceLearning    = "learning"
	serviceDictionary  = "dictionary"
	serviceSessions    = "sessions"
	serviceSchemas     = "schemas"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetStore() (store.Store, error)
	GetProviderClient() (*services.ProviderClient, error)
	GetCredentialsService() (services.CredentialsServiceInterface, error)
	GetTranslationService() (services.TranslationServiceInterface, error)
	GetLearningService() (services.LearningServiceInterface, error)
	GetDictionaryService() (services.DictionaryServiceInterface, error)
	GetSessionManager() (*translator.SessionManager, error)
	GetSchemaLoader() (*middleware.SchemaLoader, error)
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
	translatorOps []translator.Option
}

// NewServiceContainer creates a new dependency injection container. opts are
// passed to every orchestrator, tests use them to inject a mock clock.
func NewServiceContainer(cfg *config.Config, logger *observability.Logger, opts ...translator.Option) *ServiceContainer {
	return &ServiceContainer{
		cfg:           cfg,
		logger:        logger,
		services:      make(map[string]interface{}),
		translatorOps: opts,
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if err := sc.cfg.Validate(); err != nil {
		return contextutils.WrapErrorf(err, "invalid configuration")
	}

	s, err := store.New(ctx, sc.cfg, sc.logger)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to open storage")
	}
	sc.services[serviceStore] = s
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return s.Close()
	})

	if err := sc.initializeServices(ctx, s); err != nil {
		_ = sc.cleanup(ctx)
		return err
	}

	if err := sc.startupServices(ctx); err != nil {
		// Cleanup on failure
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.Newf(contextutils.ErrRecordNotFound, "service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.Newf(contextutils.ErrInternalError, "service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetStore returns the repository backend
func (sc *ServiceContainer) GetStore() (store.Store, error) {
	return GetServiceAs[store.Store](sc, serviceStore)
}

// GetProviderClient returns the provider client
func (sc *ServiceContainer) GetProviderClient() (*services.ProviderClient, error) {
	return GetServiceAs[*services.ProviderClient](sc, serviceProviders)
}

// GetCredentialsService returns the credentials service
func (sc *ServiceContainer) GetCredentialsService() (services.CredentialsServiceInterface, error) {
	return GetServiceAs[services.CredentialsServiceInterface](sc, serviceCredentials)
}

// GetTranslationService returns the one-shot translation service
func (sc *ServiceContainer) GetTranslationService() (services.TranslationServiceInterface, error) {
	return GetServiceAs[services.TranslationServiceInterface](sc, serviceTranslation)
}

// GetLearningService returns the learning service
func (sc *ServiceContainer) GetLearningService() (services.LearningServiceInterface, error) {
	return GetServiceAs[services.LearningServiceInterface](sc, serviceLearning)
}

// GetDictionaryService returns the dictionary service
func (sc *ServiceContainer) GetDictionaryService() (services.DictionaryServiceInterface, error) {
	return GetServiceAs[services.DictionaryServiceInterface](sc, serviceDictionary)
}

// GetSessionManager returns the translator session manager
func (sc *ServiceContainer) GetSessionManager() (*translator.SessionManager, error) {
	return GetServiceAs[*translator.SessionManager](sc, serviceSessions)
}

// GetSchemaLoader returns the request schema loader
func (sc *ServiceContainer) GetSchemaLoader() (*middleware.SchemaLoader, error) {
	return GetServiceAs[*middleware.SchemaLoader](sc, serviceSchemas)
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// startupServices starts all services that implement the Lifecycle interface
func (sc *ServiceContainer) startupServices(ctx context.Context) error {
	for name, service := range sc.services {
		if lifecycleService, ok := service.(interface{ Startup(context.Context) error }); ok {
			sc.logger.Info(ctx, "Starting service", map[string]interface{}{"service": name})
			if err := lifecycleService.Startup(ctx); err != nil {
				return contextutils.WrapErrorf(err, "failed to startup service %s", name)
			}
			sc.logger.Info(ctx, "Service started successfully", map[string]interface{}{"service": name})
		}
	}
	return nil
}

// cleanup handles shutdown of all services
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	for name := range sc.services {
		if lifecycleService, ok := sc.services[name].(interface{ Shutdown(context.Context) error }); ok {
			sc.logger.Info(ctx, "Shutting down service", map[string]interface{}{"service": name})
			if err := lifecycleService.Shutdown(ctx); err != nil {
				sc.logger.Error(ctx, "Failed to shutdown service", err, map[string]interface{}{"service": name})
				errors = append(errors, contextutils.WrapErrorf(err, "service %s shutdown failed", name))
			} else {
				sc.logger.Info(ctx, "Service shutdown successfully", map[string]interface{}{"service": name})
			}
		}
	}

	// Shutdown services in reverse order of initialization
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.Newf(contextutils.ErrInternalError, "shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(ctx context.Context, s store.Store) error {
	// Stored keys override the config file, the provider client needs them first
	creds, err := store.CredentialMap(ctx, s)
	if err != nil {
		sc.logger.Warn(ctx, "Failed to load stored credentials, using config keys", map[string]interface{}{"error": err.Error()})
		creds = nil
	}
	providers, err := services.NewProviderClient(sc.cfg, creds, sc.logger)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to build providers")
	}
	sc.services[serviceProviders] = providers

	sc.services[serviceCredentials] = services.NewCredentialsServiceWithLogger(s, providers, sc.logger)

	metrics := observability.NewTranslatorMetrics()
	sc.services[serviceTranslation] = services.NewTranslationServiceWithLogger(s, providers, sc.cfg.Translation.MaxTextLength, metrics, sc.logger)
	sc.services[serviceLearning] = services.NewLearningServiceWithLogger(providers, providers, sc.logger)
	sc.services[serviceDictionary] = services.NewDictionaryServiceWithLogger(s, s, sc.logger)

	opts := append([]translator.Option{translator.WithMetrics(metrics)}, sc.translatorOps...)
	sessions := translator.NewSessionManager(providers, s, s,
		translator.ConfigFrom(sc.cfg.Translation), sc.cfg.Server.SessionIdleTimeout, sc.logger, opts...)
	sc.services[serviceSessions] = sessions
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		sessions.Close()
		return nil
	})

	schemas, err := middleware.LoadEmbeddedSchemas()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to load request schemas")
	}
	sc.services[serviceSchemas] = schemas

	sc.logger.Info(ctx, "Services initialized", map[string]interface{}{
		"default_provider": providers.Name(),
		"providers":        providers.Names(),
		"storage_backend":  sc.cfg.Storage.Backend,
	})
	return nil
}
