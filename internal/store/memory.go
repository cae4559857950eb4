package store

import (
	"context"
	"sync"

	"borneo/internal/models"
)

// MemoryStore keeps everything in process memory. The dictionary layout mirrors
// the persisted form: "{from}-{to}" -> normalized source -> translation.
type MemoryStore struct {
	mu          sync.RWMutex
	dictionary  map[string]map[string]string
	history     map[string][]models.TranslationHistoryItem
	uploads     []models.UploadHistoryItem
	credentials map[string]models.Credential
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		dictionary:  make(map[string]map[string]string),
		history:     make(map[string][]models.TranslationHistoryItem),
		credentials: make(map[string]models.Credential),
	}
}

// Get implements OverrideStore
func (m *MemoryStore) Get(_ context.Context, from, to models.Language, normalized string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	translation, ok := m.dictionary[models.PairKey(from, to)][normalized]
	return translation, ok, nil
}

// Set implements OverrideStore
func (m *MemoryStore) Set(ctx context.Context, from, to models.Language, source, translation string) error {
	_, err := m.Import(ctx, from, to, []models.OverrideEntry{{From: from, To: to, Source: source, Translation: translation}})
	return err
}

// Import implements OverrideStore
func (m *MemoryStore) Import(_ context.Context, from, to models.Language, entries []models.OverrideEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.PairKey(from, to)
	pair, ok := m.dictionary[key]
	if !ok {
		pair = make(map[string]string)
		m.dictionary[key] = pair
	}
	n := 0
	for _, e := range entries {
		source := models.Normalize(e.Source)
		if source == "" {
			continue
		}
		pair[source] = e.Translation
		n++
	}
	return n, nil
}

// Count implements OverrideStore
func (m *MemoryStore) Count(_ context.Context, from, to models.Language) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dictionary[models.PairKey(from, to)]), nil
}

// Load implements HistoryStore
func (m *MemoryStore) Load(_ context.Context, owner string) ([]models.TranslationHistoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.TranslationHistoryItem(nil), m.history[owner]...), nil
}

// Save implements HistoryStore
func (m *MemoryStore) Save(_ context.Context, owner string, items []models.TranslationHistoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[owner] = append([]models.TranslationHistoryItem(nil), items...)
	return nil
}

// Clear implements HistoryStore
func (m *MemoryStore) Clear(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, owner)
	return nil
}

// AddUpload implements UploadStore
func (m *MemoryStore) AddUpload(_ context.Context, item models.UploadHistoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, item)
	return nil
}

// ListUploads implements UploadStore
func (m *MemoryStore) ListUploads(_ context.Context) ([]models.UploadHistoryItem, error) {
	m.mu.RLock()
	out := append([]models.UploadHistoryItem(nil), m.uploads...)
	m.mu.RUnlock()
	sortUploads(out)
	return out, nil
}

// SetCredential implements CredentialStore
func (m *MemoryStore) SetCredential(_ context.Context, cred models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cred.Service] = cred
	return nil
}

// GetCredential implements CredentialStore
func (m *MemoryStore) GetCredential(_ context.Context, service string) (models.Credential, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credentials[service]
	return c, ok, nil
}

// ListCredentials implements CredentialStore
func (m *MemoryStore) ListCredentials(_ context.Context) ([]models.Credential, error) {
	m.mu.RLock()
	out := make([]models.Credential, 0, len(m.credentials))
	for _, c := range m.credentials {
		out = append(out, c)
	}
	m.mu.RUnlock()
	sortCredentials(out)
	return out, nil
}

// Close implements Store
func (m *MemoryStore) Close() error { return nil }
