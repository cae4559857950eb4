package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"borneo/internal/config"
	"borneo/internal/models"
	"borneo/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) *Env {
	cfg := config.Default()
	cfg.Providers[0].DemoDelay = 0
	env := NewEnv(cfg, observability.NewNopLogger())
	t.Cleanup(func() { env.Close(context.Background()) })
	return env
}

func TestParsePair(t *testing.T) {
	from, to, err := parsePair("id", "Ngaju")
	require.NoError(t, err)
	assert.Equal(t, models.Indonesian, from)
	assert.Equal(t, models.Ngaju, to)

	_, _, err = parsePair("klingon", "id")
	assert.Error(t, err)
}

func TestEnv_ContainerIsShared(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.Container(ctx)
	require.NoError(t, err)
	second, err := env.Container(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)

	env.Close(ctx)
	env.Close(ctx)
}

func TestDictionaryImportThenLookup(t *testing.T) {
	env := newTestEnv(t)
	file := filepath.Join(t.TempDir(), "kamus.csv")
	require.NoError(t, os.WriteFile(file, []byte("Terima kasih,Tarima kasih\nrusak\n"), 0o600))

	importCmd := DictionaryCommands(env)
	importCmd.SetArgs([]string{"import", "--file", file, "--from", "id", "--to", "bkm"})
	require.NoError(t, importCmd.ExecuteContext(context.Background()))

	c, err := env.Container(context.Background())
	require.NoError(t, err)
	dict, err := c.GetDictionaryService()
	require.NoError(t, err)
	translation, found, err := dict.Lookup(context.Background(), models.Indonesian, models.Bakumpai, "  TERIMA KASIH ")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Tarima kasih", translation)

	lookupCmd := DictionaryCommands(env)
	lookupCmd.SetArgs([]string{"lookup", "--from", "id", "--to", "bkm", "--text", "tidak ada"})
	assert.Error(t, lookupCmd.ExecuteContext(context.Background()))
}

func TestHistoryClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.Container(ctx)
	require.NoError(t, err)
	s, err := c.GetStore()
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "browser-1", []models.TranslationHistoryItem{{ID: "h1", InputText: "halo"}}))

	cmd := HistoryCommands(env)
	cmd.SetArgs([]string{"clear", "--session", "browser-1"})
	require.NoError(t, cmd.ExecuteContext(ctx))

	items, err := s.Load(ctx, "browser-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
