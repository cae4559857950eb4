// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"sync"

	"borneo/internal/config"
	"borneo/internal/di"
	"borneo/internal/observability"
	contextutils "borneo/internal/utils"
)

// Env opens the service container on first use so commands that need no
// storage, like hash-password, never touch the database or the leveldb lock.
type Env struct {
	cfg    *config.Config
	logger *observability.Logger

	mu        sync.Mutex
	container *di.ServiceContainer
}

// NewEnv creates a lazily initialized command environment
func NewEnv(cfg *config.Config, logger *observability.Logger) *Env {
	return &Env{cfg: cfg, logger: logger}
}

// Container returns the initialized service container
func (e *Env) Container(ctx context.Context) (*di.ServiceContainer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.container != nil {
		return e.container, nil
	}
	c := di.NewServiceContainer(e.cfg, e.logger)
	if err := c.Initialize(ctx); err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize services")
	}
	e.container = c
	return c, nil
}

// Close shuts the container down if it was opened
func (e *Env) Close(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.container == nil {
		return
	}
	if err := e.container.Shutdown(ctx); err != nil {
		e.logger.Warn(ctx, "Failed to shut down services", map[string]interface{}{"error": err.Error()})
	}
	e.container = nil
}
