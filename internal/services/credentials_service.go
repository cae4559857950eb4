package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/serviceinterfaces"
	"borneo/internal/store"
	contextutils "borneo/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Reconfigurer accepts new credentials at runtime
type Reconfigurer interface {
	Reconfigure(creds serviceinterfaces.Credentials) error
}

// MaskedCredential is the admin view of a stored key
type MaskedCredential struct {
	Service   string    `json:"service"`
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CredentialsServiceInterface stores API keys and pushes them to the providers
type CredentialsServiceInterface interface {
	Set(ctx context.Context, service, key string) error
	List(ctx context.Context) ([]MaskedCredential, error)
	Load(ctx context.Context) (serviceinterfaces.Credentials, error)
}

// CredentialsService implements CredentialsServiceInterface
type CredentialsService struct {
	store  store.CredentialStore
	target Reconfigurer
	logger *observability.Logger
}

// NewCredentialsServiceWithLogger creates a credentials service. target may be nil.
func NewCredentialsServiceWithLogger(s store.CredentialStore, target Reconfigurer, logger *observability.Logger) *CredentialsService {
	return &CredentialsService{store: s, target: target, logger: logger}
}

// Set stores a key and reconfigures the providers with the full credential set
func (s *CredentialsService) Set(ctx context.Context, service, key string) (err error) {
	ctx, span := observability.TraceFunction(ctx, "credentials", "set", attribute.String("credential.service", service))
	defer observability.FinishSpan(span, &err)

	service = strings.ToLower(strings.TrimSpace(service))
	if !slices.Contains(models.CredentialServices, service) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown credential service %q", service)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return contextutils.WrapErrorf(contextutils.ErrMissingRequired, "api key is required")
	}

	if err := s.store.SetCredential(ctx, models.Credential{Service: service, Key: key, UpdatedAt: time.Now().UTC()}); err != nil {
		return err
	}

	creds, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if s.target != nil {
		if err := s.target.Reconfigure(creds); err != nil {
			return err
		}
	}

	s.logger.Info(ctx, "API key updated", map[string]interface{}{"service": service})
	return nil
}

// List returns the stored keys with all but the last four characters hidden
func (s *CredentialsService) List(ctx context.Context) ([]MaskedCredential, error) {
	creds, err := s.store.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MaskedCredential, 0, len(creds))
	for _, c := range creds {
		out = append(out, MaskedCredential{Service: c.Service, Key: c.MaskedKey(), UpdatedAt: c.UpdatedAt})
	}
	return out, nil
}

// Load returns the stored keys keyed by service
func (s *CredentialsService) Load(ctx context.Context) (serviceinterfaces.Credentials, error) {
	m, err := store.CredentialMap(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return serviceinterfaces.Credentials(m), nil
}
