package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"borneo/internal/models"
	"borneo/internal/observability"
	contextutils "borneo/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
	return NewPostgresStore(db, observability.NewNopLogger()), mock
}

func TestPostgresStore_GetOverride(t *testing.T) {
	s, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT translation FROM dictionary_entries`).
		WithArgs("Indonesian", "Bakumpai", "halo").
		WillReturnRows(sqlmock.NewRows([]string{"translation"}).AddRow("nyawi"))

	got, found, err := s.Get(ctx, models.Indonesian, models.Bakumpai, "halo")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "nyawi", got)

	mock.ExpectQuery(`SELECT translation FROM dictionary_entries`).
		WithArgs("Indonesian", "Bakumpai", "tidak ada").
		WillReturnError(sql.ErrNoRows)

	_, found, err = s.Get(ctx, models.Indonesian, models.Bakumpai, "tidak ada")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPostgresStore_GetOverrideQueryError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT translation FROM dictionary_entries`).
		WillReturnError(errors.New("connection reset"))

	_, _, err := s.Get(context.Background(), models.Indonesian, models.Bakumpai, "halo")
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeDatabaseQuery, contextutils.GetErrorCode(err))
}

func TestPostgresStore_ImportUsesTransaction(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO dictionary_entries`)
	prep.ExpectExec().WithArgs("Indonesian", "Ngaju", "rumah", "huma").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("Indonesian", "Ngaju", "air", "danum").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := s.Import(context.Background(), models.Indonesian, models.Ngaju, []models.OverrideEntry{
		{Source: "Rumah", Translation: "huma"},
		{Source: "", Translation: "skipped"},
		{Source: " air ", Translation: "danum"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPostgresStore_ImportRollsBackOnError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO dictionary_entries`)
	prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err := s.Import(context.Background(), models.Indonesian, models.Ngaju, []models.OverrideEntry{
		{Source: "rumah", Translation: "huma"},
	})
	require.Error(t, err)
}

func TestPostgresStore_SaveAndLoadHistory(t *testing.T) {
	s, mock := newMockPostgres(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	item := models.TranslationHistoryItem{ID: "hist-1", From: models.Indonesian, To: models.Bakumpai, InputText: "halo", OutputText: "nyawi", Date: now}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM translation_history`).WithArgs("owner").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO translation_history`).
		WithArgs("owner", "hist-1", 0, "Indonesian", "Bakumpai", "halo", "nyawi", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, s.Save(ctx, "owner", []models.TranslationHistoryItem{item}))

	mock.ExpectQuery(`SELECT id, from_lang, to_lang, input_text, output_text, created_at`).
		WithArgs("owner").
		WillReturnRows(sqlmock.NewRows([]string{"id", "from_lang", "to_lang", "input_text", "output_text", "created_at"}).
			AddRow("hist-1", "Indonesian", "Bakumpai", "halo", "nyawi", now))

	got, err := s.Load(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, item, got[0])
}

func TestPostgresStore_Credentials(t *testing.T) {
	s, mock := newMockPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO api_credentials`).
		WithArgs("gemini", "secret", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SetCredential(ctx, models.Credential{Service: "gemini", Key: "secret", UpdatedAt: now}))

	mock.ExpectQuery(`SELECT service, api_key, updated_at FROM api_credentials`).
		WillReturnRows(sqlmock.NewRows([]string{"service", "api_key", "updated_at"}).AddRow("gemini", "secret", now))
	creds, err := CredentialMap(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"gemini": "secret"}, creds)
}
