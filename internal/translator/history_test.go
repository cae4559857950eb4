package translator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// brokenHistoryStore fails every write
type brokenHistoryStore struct {
	store.HistoryStore
}

func (brokenHistoryStore) Save(context.Context, string, []models.TranslationHistoryItem) error {
	return errors.New("disk full")
}

func (brokenHistoryStore) Clear(context.Context, string) error {
	return errors.New("disk full")
}

func item(i int) models.TranslationHistoryItem {
	return models.NewHistoryItem(models.Indonesian, models.Ngaju, fmt.Sprintf("in %d", i), fmt.Sprintf("out %d", i), time.Unix(int64(i), 0))
}

func TestHistory_PrependsAndCaps(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	h := NewHistory("owner", mem, 3, observability.NewNopLogger())

	for i := 0; i < 5; i++ {
		h.Commit(ctx, item(i))
	}

	items := h.Items(ctx)
	require.Len(t, items, 3)
	assert.Equal(t, "in 4", items[0].InputText)
	assert.Equal(t, "in 2", items[2].InputText)

	found, ok := h.Find(ctx, items[1].ID)
	assert.True(t, ok)
	assert.Equal(t, "in 3", found.InputText)

	// A fresh History sees the persisted list
	reloaded := NewHistory("owner", mem, 3, observability.NewNopLogger())
	assert.Equal(t, items, reloaded.Items(ctx))
}

func TestHistory_ItemsIsACopy(t *testing.T) {
	ctx := context.Background()
	h := NewHistory("owner", store.NewMemoryStore(), 0, observability.NewNopLogger())
	h.Commit(ctx, item(1))

	items := h.Items(ctx)
	items[0].OutputText = "changed"
	assert.Equal(t, "out 1", h.Items(ctx)[0].OutputText)
}

func TestHistory_StorageFailuresAreLogged(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := &observability.Logger{Logger: zap.New(core)}

	h := NewHistory("owner", brokenHistoryStore{HistoryStore: store.NewMemoryStore()}, 20, logger)
	h.Commit(ctx, item(1))
	assert.Len(t, h.Items(ctx), 1)

	h.Clear(ctx)
	assert.Empty(t, h.Items(ctx))

	assert.Equal(t, 1, logs.FilterMessage("Failed to persist translation history").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to clear translation history").Len())
}

// flakyHistoryStore fails the first loads, then behaves like the wrapped store
type flakyHistoryStore struct {
	store.HistoryStore
	failLoads int
	loads     int
}

func (f *flakyHistoryStore) Load(ctx context.Context, owner string) ([]models.TranslationHistoryItem, error) {
	f.loads++
	if f.loads <= f.failLoads {
		return nil, errors.New("connection refused")
	}
	return f.HistoryStore.Load(ctx, owner)
}

func TestHistory_UnreadableListIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	persisted := []models.TranslationHistoryItem{item(5), item(4), item(3), item(2), item(1)}
	require.NoError(t, mem.Save(ctx, "owner", persisted))

	flaky := &flakyHistoryStore{HistoryStore: mem, failLoads: 1}
	h := NewHistory("owner", flaky, 20, observability.NewNopLogger())
	h.Commit(ctx, item(6))

	stored, err := mem.Load(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, persisted, stored, "a failed load must not let a commit replace the stored list")

	// The next access loads and merges the held commit in front
	items := h.Items(ctx)
	require.Len(t, items, 6)
	assert.Equal(t, "in 6", items[0].InputText)
	assert.Equal(t, "in 5", items[1].InputText)

	stored, err = mem.Load(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, items, stored)
	assert.Equal(t, 2, flaky.loads)
}

func TestHistory_MergeAfterFailedLoadRespectsLimit(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.Save(ctx, "owner", []models.TranslationHistoryItem{item(2), item(1)}))

	flaky := &flakyHistoryStore{HistoryStore: mem, failLoads: 2}
	h := NewHistory("owner", flaky, 3, observability.NewNopLogger())
	h.Commit(ctx, item(3))
	h.Commit(ctx, item(4))

	items := h.Items(ctx)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"in 4", "in 3", "in 2"}, []string{items[0].InputText, items[1].InputText, items[2].InputText})
}
