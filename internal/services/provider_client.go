// Package services provides business logic services for the translation backend.
package services

import (
	"context"
	"sync"

	"borneo/internal/config"
	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/serviceinterfaces"
	contextutils "borneo/internal/utils"
)

// CredentialServiceForKind returns the stored credential a provider kind reads its key from
func CredentialServiceForKind(kind string) string {
	switch kind {
	case config.ProviderKindGemini:
		return models.CredentialGemini
	case config.ProviderKindOpenAI:
		return models.CredentialGitHub
	default:
		return ""
	}
}

// ProviderClient owns the configured providers and routes calls to the default one.
// Reconfigure swaps the providers in place so holders of the client see new keys
// without being rebuilt.
type ProviderClient struct {
	mu          sync.RWMutex
	configs     []config.ProviderConfig
	defaultName string
	providers   map[string]serviceinterfaces.Provider
	logger      *observability.Logger
}

// NewProviderClient builds every configured provider with the given credentials
func NewProviderClient(cfg *config.Config, creds serviceinterfaces.Credentials, logger *observability.Logger) (*ProviderClient, error) {
	def, ok := cfg.DefaultProviderConfig()
	if !ok {
		return nil, contextutils.WrapErrorf(contextutils.ErrMissingRequired, "no translation providers configured")
	}
	c := &ProviderClient{
		configs:     append([]config.ProviderConfig(nil), cfg.Providers...),
		defaultName: def.Name,
		logger:      logger,
	}
	if err := c.Reconfigure(creds); err != nil {
		return nil, err
	}
	return c, nil
}

// buildProvider creates one provider. Stored credentials take precedence over the config file key.
func buildProvider(pc config.ProviderConfig, creds serviceinterfaces.Credentials, logger *observability.Logger) (serviceinterfaces.Provider, error) {
	key := pc.APIKey
	if stored := creds[CredentialServiceForKind(pc.Kind)]; stored != "" {
		key = stored
	}
	switch pc.Kind {
	case config.ProviderKindGemini:
		return NewGeminiProvider(pc, key, logger), nil
	case config.ProviderKindOpenAI:
		return NewOpenAIProvider(pc, key, logger), nil
	case config.ProviderKindDemo:
		return NewDemoProvider(pc), nil
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown provider kind %q", pc.Kind)
	}
}

// Reconfigure rebuilds all providers with new credentials. In-flight calls keep
// the provider they started with.
func (c *ProviderClient) Reconfigure(creds serviceinterfaces.Credentials) error {
	providers := make(map[string]serviceinterfaces.Provider, len(c.configs))
	for _, pc := range c.configs {
		p, err := buildProvider(pc, creds, c.logger)
		if err != nil {
			return err
		}
		providers[pc.Name] = p
	}

	c.mu.Lock()
	c.providers = providers
	c.mu.Unlock()

	c.logger.Info(context.Background(), "Provider client configured", map[string]interface{}{
		"default_provider": c.defaultName,
		"provider_count":   len(providers),
	})
	return nil
}

// Provider returns a provider by name, the default one when name is empty
func (c *ProviderClient) Provider(name string) (serviceinterfaces.Provider, error) {
	if name == "" {
		name = c.defaultName
	}
	c.mu.RLock()
	p, ok := c.providers[name]
	c.mu.RUnlock()
	if !ok {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown provider %q", name)
	}
	return p, nil
}

func (c *ProviderClient) current() serviceinterfaces.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.providers[c.defaultName]
}

// Names lists the configured provider names
func (c *ProviderClient) Names() []string {
	names := make([]string, 0, len(c.configs))
	for _, pc := range c.configs {
		names = append(names, pc.Name)
	}
	return names
}

// Name returns the default provider name
func (c *ProviderClient) Name() string { return c.defaultName }

// TranslateStream delegates to the default provider
func (c *ProviderClient) TranslateStream(ctx context.Context, req models.TranslationRequest, chunks chan<- string) error {
	return c.current().TranslateStream(ctx, req, chunks)
}

// Translate delegates to the default provider
func (c *ProviderClient) Translate(ctx context.Context, req models.TranslationRequest) (string, error) {
	return c.current().Translate(ctx, req)
}

// Generate delegates to the default provider
func (c *ProviderClient) Generate(ctx context.Context, prompt string, opts serviceinterfaces.GenerateOptions) (string, error) {
	return c.current().Generate(ctx, prompt, opts)
}

// Synthesize uses the default provider when it supports speech, otherwise the
// first configured provider that does.
func (c *ProviderClient) Synthesize(ctx context.Context, text, voice string) (*serviceinterfaces.SpeechAudio, error) {
	if s, ok := c.current().(serviceinterfaces.SpeechSynthesizer); ok {
		return s.Synthesize(ctx, text, voice)
	}
	for _, pc := range c.configs {
		p, err := c.Provider(pc.Name)
		if err != nil {
			continue
		}
		if s, ok := p.(serviceinterfaces.SpeechSynthesizer); ok {
			return s.Synthesize(ctx, text, voice)
		}
	}
	return nil, contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "no configured provider supports speech")
}
