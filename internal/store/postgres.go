package store

import (
	"context"
	"database/sql"
	"errors"

	"borneo/internal/models"
	"borneo/internal/observability"
	contextutils "borneo/internal/utils"
)

// PostgresStore keeps the repositories in PostgreSQL. The schema lives in the
// database package migrations.
type PostgresStore struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewPostgresStore wraps an open, migrated database
func NewPostgresStore(db *sql.DB, logger *observability.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func queryErr(op string, err error) error {
	return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "%s: %v", op, err)
}

// Get implements OverrideStore
func (p *PostgresStore) Get(ctx context.Context, from, to models.Language, normalized string) (result string, found bool, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "postgres_get_override", observability.AttributeLanguagePair(string(from), string(to))...)
	defer observability.FinishSpan(span, &err)

	err = p.db.QueryRowContext(ctx,
		`SELECT translation FROM dictionary_entries WHERE from_lang = $1 AND to_lang = $2 AND source = $3`,
		string(from), string(to), normalized,
	).Scan(&result)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, queryErr("get override", err)
	}
	return result, true, nil
}

// Set implements OverrideStore
func (p *PostgresStore) Set(ctx context.Context, from, to models.Language, source, translation string) error {
	_, err := p.Import(ctx, from, to, []models.OverrideEntry{{From: from, To: to, Source: source, Translation: translation}})
	return err
}

// Import upserts all entries in one transaction
func (p *PostgresStore) Import(ctx context.Context, from, to models.Language, entries []models.OverrideEntry) (n int, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "postgres_import_overrides", observability.AttributeLanguagePair(string(from), string(to))...)
	defer observability.FinishSpan(span, &err)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, queryErr("begin import", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				p.logger.Error(ctx, "Failed to roll back dictionary import", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dictionary_entries (from_lang, to_lang, source, translation, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (from_lang, to_lang, source) DO UPDATE SET translation = EXCLUDED.translation, updated_at = NOW()`)
	if err != nil {
		return 0, queryErr("prepare import", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		source := models.Normalize(e.Source)
		if source == "" {
			continue
		}
		if _, err = stmt.ExecContext(ctx, string(from), string(to), source, e.Translation); err != nil {
			return 0, queryErr("insert override", err)
		}
		n++
	}

	if err = tx.Commit(); err != nil {
		return 0, queryErr("commit import", err)
	}
	return n, nil
}

// Count implements OverrideStore
func (p *PostgresStore) Count(ctx context.Context, from, to models.Language) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dictionary_entries WHERE from_lang = $1 AND to_lang = $2`,
		string(from), string(to),
	).Scan(&n)
	if err != nil {
		return 0, queryErr("count overrides", err)
	}
	return n, nil
}

// Load implements HistoryStore
func (p *PostgresStore) Load(ctx context.Context, owner string) (items []models.TranslationHistoryItem, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "postgres_load_history")
	defer observability.FinishSpan(span, &err)

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, from_lang, to_lang, input_text, output_text, created_at
		FROM translation_history WHERE owner = $1 ORDER BY position`, owner)
	if err != nil {
		return nil, queryErr("load history", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item models.TranslationHistoryItem
		var from, to string
		if err := rows.Scan(&item.ID, &from, &to, &item.InputText, &item.OutputText, &item.Date); err != nil {
			return nil, queryErr("scan history", err)
		}
		item.From, item.To = models.Language(from), models.Language(to)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr("iterate history", err)
	}
	return items, nil
}

// Save replaces the owner's history in one transaction
func (p *PostgresStore) Save(ctx context.Context, owner string, items []models.TranslationHistoryItem) (err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "postgres_save_history")
	defer observability.FinishSpan(span, &err)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return queryErr("begin save history", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				p.logger.Error(ctx, "Failed to roll back history save", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM translation_history WHERE owner = $1`, owner); err != nil {
		return queryErr("delete history", err)
	}
	for i, item := range items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO translation_history (owner, id, position, from_lang, to_lang, input_text, output_text, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			owner, item.ID, i, string(item.From), string(item.To), item.InputText, item.OutputText, item.Date,
		); err != nil {
			return queryErr("insert history", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return queryErr("commit history", err)
	}
	return nil
}

// Clear implements HistoryStore
func (p *PostgresStore) Clear(ctx context.Context, owner string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM translation_history WHERE owner = $1`, owner); err != nil {
		return queryErr("clear history", err)
	}
	return nil
}

// AddUpload implements UploadStore
func (p *PostgresStore) AddUpload(ctx context.Context, item models.UploadHistoryItem) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO dictionary_uploads (id, file_name, from_lang, to_lang, entry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.FileName, string(item.From), string(item.To), item.Count, item.Date)
	if err != nil {
		return queryErr("add upload", err)
	}
	return nil
}

// ListUploads implements UploadStore
func (p *PostgresStore) ListUploads(ctx context.Context) ([]models.UploadHistoryItem, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, file_name, from_lang, to_lang, entry_count, created_at
		FROM dictionary_uploads ORDER BY created_at DESC`)
	if err != nil {
		return nil, queryErr("list uploads", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.UploadHistoryItem
	for rows.Next() {
		var item models.UploadHistoryItem
		var from, to string
		if err := rows.Scan(&item.ID, &item.FileName, &from, &to, &item.Count, &item.Date); err != nil {
			return nil, queryErr("scan upload", err)
		}
		item.From, item.To = models.Language(from), models.Language(to)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr("iterate uploads", err)
	}
	return out, nil
}

// SetCredential implements CredentialStore
func (p *PostgresStore) SetCredential(ctx context.Context, cred models.Credential) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO api_credentials (service, api_key, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (service) DO UPDATE SET api_key = EXCLUDED.api_key, updated_at = EXCLUDED.updated_at`,
		cred.Service, cred.Key, cred.UpdatedAt)
	if err != nil {
		return queryErr("set credential", err)
	}
	return nil
}

// GetCredential implements CredentialStore
func (p *PostgresStore) GetCredential(ctx context.Context, service string) (models.Credential, bool, error) {
	cred := models.Credential{Service: service}
	err := p.db.QueryRowContext(ctx,
		`SELECT api_key, updated_at FROM api_credentials WHERE service = $1`, service,
	).Scan(&cred.Key, &cred.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, false, nil
	}
	if err != nil {
		return models.Credential{}, false, queryErr("get credential", err)
	}
	return cred, true, nil
}

// ListCredentials implements CredentialStore
func (p *PostgresStore) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT service, api_key, updated_at FROM api_credentials ORDER BY service`)
	if err != nil {
		return nil, queryErr("list credentials", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Credential
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.Service, &c.Key, &c.UpdatedAt); err != nil {
			return nil, queryErr("scan credential", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, queryErr("iterate credentials", err)
	}
	return out, nil
}

// Close implements Store
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
