package translator

import (
	"context"
	"sync"

	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/store"
)

// History is the bounded, most-recent-first list of one owner. The whole list is
// written back on every change. Storage failures are logged and the in-memory
// list stays authoritative. The persisted list is never overwritten before it has
// been read once: commits made while it is unreadable stay in memory and are
// merged in front of it when a later load succeeds.
type History struct {
	owner  string
	store  store.HistoryStore
	limit  int
	logger *observability.Logger

	mu     sync.Mutex
	items  []models.TranslationHistoryItem
	loaded bool
	// dirty means items has commits made before the first successful load
	dirty bool
}

// NewHistory creates the history of owner. limit <= 0 means the default of 20.
func NewHistory(owner string, s store.HistoryStore, limit int, logger *observability.Logger) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{owner: owner, store: s, limit: limit, logger: logger}
}

// loadLocked reads the persisted list once. It reports whether the list is known.
func (h *History) loadLocked(ctx context.Context) bool {
	if h.loaded {
		return true
	}
	items, err := h.store.Load(ctx, h.owner)
	if err != nil {
		h.logger.Warn(ctx, "Failed to load translation history, will retry", map[string]interface{}{
			"owner":   h.owner,
			"pending": len(h.items),
			"error":   err.Error(),
		})
		return false
	}
	h.loaded = true
	h.dirty = len(h.items) > 0
	h.items = h.capped(append(h.items, items...))
	return true
}

func (h *History) capped(items []models.TranslationHistoryItem) []models.TranslationHistoryItem {
	if len(items) > h.limit {
		return items[:h.limit]
	}
	return items
}

// syncLocked loads the list and writes back commits that were held in memory
func (h *History) syncLocked(ctx context.Context) {
	if h.loadLocked(ctx) && h.dirty {
		h.saveLocked(ctx)
	}
}

// saveLocked writes the list once. A failed write is logged, not retried.
func (h *History) saveLocked(ctx context.Context) {
	h.dirty = false
	if err := h.store.Save(ctx, h.owner, h.items); err != nil {
		h.logger.Error(ctx, "Failed to persist translation history", err, map[string]interface{}{"owner": h.owner})
	}
}

// Items returns a copy of the list
func (h *History) Items(ctx context.Context) []models.TranslationHistoryItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.syncLocked(ctx)
	return append([]models.TranslationHistoryItem{}, h.items...)
}

// Find returns the entry with the given id
func (h *History) Find(ctx context.Context, id string) (models.TranslationHistoryItem, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.syncLocked(ctx)
	for _, item := range h.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.TranslationHistoryItem{}, false
}

// Commit prepends item, evicts past the limit and persists the new list
func (h *History) Commit(ctx context.Context, item models.TranslationHistoryItem) {
	ctx, span := observability.TraceTranslatorFunction(ctx, "commit_history",
		append(observability.AttributeLanguagePair(string(item.From), string(item.To)), observability.AttributeSessionID(h.owner))...)
	defer span.End()

	h.mu.Lock()
	defer h.mu.Unlock()
	loaded := h.loadLocked(ctx)

	next := make([]models.TranslationHistoryItem, 0, min(len(h.items)+1, h.limit))
	next = append(next, item)
	next = append(next, h.items...)
	h.items = h.capped(next)
	h.dirty = true

	if loaded {
		h.saveLocked(ctx)
	}
}

// Clear empties the list and removes the persisted record
func (h *History) Clear(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = true
	h.dirty = false
	h.items = nil
	if err := h.store.Clear(ctx, h.owner); err != nil {
		h.logger.Error(ctx, "Failed to clear translation history", err, map[string]interface{}{"owner": h.owner})
	}
}
