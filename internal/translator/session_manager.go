package translator

import (
	"context"
	"strings"
	"sync"
	"time"

	"borneo/internal/config"
	"borneo/internal/observability"
	"borneo/internal/serviceinterfaces"
	"borneo/internal/store"
	contextutils "borneo/internal/utils"

	"github.com/raulk/clock"
)

// SessionManager keeps one Orchestrator per browser session. All orchestrators
// share the provider and the stores, history is keyed by session id.
type SessionManager struct {
	provider    serviceinterfaces.TranslationProvider
	overrides   store.OverrideStore
	histories   store.HistoryStore
	cfg         Config
	idleTimeout time.Duration
	opts        []Option
	clock       clock.Clock
	logger      *observability.Logger

	mu       sync.Mutex
	sessions map[string]*Orchestrator
	closed   bool
}

// NewSessionManager creates an empty manager. idleTimeout <= 0 disables reaping.
func NewSessionManager(provider serviceinterfaces.TranslationProvider, overrides store.OverrideStore, histories store.HistoryStore, cfg Config, idleTimeout time.Duration, logger *observability.Logger, opts ...Option) *SessionManager {
	return &SessionManager{
		provider:    provider,
		overrides:   overrides,
		histories:   histories,
		cfg:         cfg,
		idleTimeout: idleTimeout,
		opts:        opts,
		clock:       buildOptions(opts).clock,
		logger:      logger,
		sessions:    make(map[string]*Orchestrator),
	}
}

// Get returns the orchestrator of id, creating it on first use
func (m *SessionManager) Get(id string) (*Orchestrator, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, contextutils.WrapError(contextutils.ErrServiceUnavailable, "session manager is shut down")
	}
	if o, ok := m.sessions[id]; ok {
		return o, nil
	}

	history := NewHistory(id, m.histories, m.cfg.HistoryLimit, m.logger)
	o := New(id, m.provider, m.overrides, history, m.cfg, m.logger, m.opts...)
	m.sessions[id] = o
	m.logger.Debug(context.Background(), "Translation session created", map[string]interface{}{"session_id": id})
	return o, nil
}

// Lookup returns an existing orchestrator without creating one
func (m *SessionManager) Lookup(id string) (*Orchestrator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.sessions[id]
	return o, ok
}

// Len returns the number of live sessions
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Reap closes sessions idle for longer than the idle timeout. Sessions with an
// open event stream are kept. It returns how many were closed.
func (m *SessionManager) Reap(ctx context.Context) int {
	if m.idleTimeout <= 0 {
		return 0
	}
	now := m.clock.Now()

	var idle []*Orchestrator
	m.mu.Lock()
	for id, o := range m.sessions {
		if o.Subscribed() || now.Sub(o.LastActive()) < m.idleTimeout {
			continue
		}
		idle = append(idle, o)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, o := range idle {
		o.Close()
	}
	if len(idle) > 0 {
		m.logger.Info(ctx, "Closed idle translation sessions", map[string]interface{}{"count": len(idle)})
	}
	return len(idle)
}

// Run reaps idle sessions every interval until ctx is done, then closes all
// sessions. interval <= 0 uses config.SessionJanitorInterval.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = config.SessionJanitorInterval
	}
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return nil
		case <-ticker.C:
			m.Reap(ctx)
		}
	}
}

// Close shuts every session down. Later Get calls fail.
func (m *SessionManager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Orchestrator)
	m.mu.Unlock()

	for _, o := range sessions {
		o.Close()
	}
}
