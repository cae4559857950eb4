// Package store holds the repositories behind the translator: the local override
// dictionary, per-session translation history, dictionary upload records and
// stored API credentials. Backends are swappable without touching orchestration.
package store

import (
	"context"
	"database/sql"
	"sort"

	"borneo/internal/config"
	"borneo/internal/database"
	"borneo/internal/models"
	"borneo/internal/observability"
	contextutils "borneo/internal/utils"
)

// OverrideStore maps (from, to, normalized source) to a curated translation
type OverrideStore interface {
	// Get looks up an already normalized source text
	Get(ctx context.Context, from, to models.Language, normalized string) (string, bool, error)
	// Set normalizes source and stores the translation, last write wins
	Set(ctx context.Context, from, to models.Language, source, translation string) error
	// Import stores many entries for one pair and returns how many were written
	Import(ctx context.Context, from, to models.Language, entries []models.OverrideEntry) (int, error)
	// Count returns the number of entries for a pair
	Count(ctx context.Context, from, to models.Language) (int, error)
}

// HistoryStore persists the bounded history list of each owner as a whole value
type HistoryStore interface {
	Load(ctx context.Context, owner string) ([]models.TranslationHistoryItem, error)
	Save(ctx context.Context, owner string, items []models.TranslationHistoryItem) error
	Clear(ctx context.Context, owner string) error
}

// UploadStore records dictionary uploads
type UploadStore interface {
	AddUpload(ctx context.Context, item models.UploadHistoryItem) error
	// ListUploads returns uploads most recent first
	ListUploads(ctx context.Context) ([]models.UploadHistoryItem, error)
}

// CredentialStore keeps API keys per service
type CredentialStore interface {
	SetCredential(ctx context.Context, cred models.Credential) error
	GetCredential(ctx context.Context, service string) (models.Credential, bool, error)
	ListCredentials(ctx context.Context) ([]models.Credential, error)
}

// Store is a complete backend
type Store interface {
	OverrideStore
	HistoryStore
	UploadStore
	CredentialStore
	Close() error
}

// New opens the backend selected by the storage config. The override dictionary
// is fronted by an LRU cache when a cache size is configured.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (result Store, err error) {
	_, span := observability.TraceStoreFunction(ctx, "new")
	defer observability.FinishSpan(span, &err)

	var s Store
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory, "":
		s = NewMemoryStore()
	case config.StorageBackendLevelDB:
		s, err = OpenLevelDBStore(cfg.Storage.LevelDBPath)
	case config.StorageBackendPostgres:
		var db *sql.DB
		db, err = database.NewManager(logger).InitDB(cfg.Database)
		if err == nil {
			s = NewPostgresStore(db, logger)
		}
	default:
		err = contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Storage backend opened", map[string]interface{}{
		"backend":             cfg.Storage.Backend,
		"override_cache_size": cfg.Storage.OverrideCacheSize,
		"override_cache_ttl":  cfg.Storage.OverrideCacheTTL.String(),
	})

	if cfg.Storage.OverrideCacheSize > 0 {
		return NewCachedStore(s, cfg.Storage.OverrideCacheSize, cfg.Storage.OverrideCacheTTL)
	}
	return s, nil
}

// CredentialMap returns the stored keys as a service to key map
func CredentialMap(ctx context.Context, s CredentialStore) (map[string]string, error) {
	creds, err := s.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(creds))
	for _, c := range creds {
		out[c.Service] = c.Key
	}
	return out, nil
}

func sortUploads(items []models.UploadHistoryItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date.After(items[j].Date) })
}

func sortCredentials(items []models.Credential) {
	sort.Slice(items, func(i, j int) bool { return items[i].Service < items[j].Service })
}
