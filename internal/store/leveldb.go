package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"borneo/internal/models"
	"borneo/internal/observability"
	contextutils "borneo/internal/utils"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key layout:
//
//	dict/{from}-{to}/{normalized source}  -> translation
//	history/{owner}                       -> JSON list, most recent first
//	upload/{id}                           -> JSON UploadHistoryItem
//	cred/{service}                        -> JSON credentialRecord
const (
	dictPrefix    = "dict/"
	historyPrefix = "history/"
	uploadPrefix  = "upload/"
	credPrefix    = "cred/"
)

// credentialRecord is the persisted form of a credential, models.Credential hides the key from JSON
type credentialRecord struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LevelDBStore persists everything in an embedded LevelDB database
type LevelDBStore struct {
	db *leveldb.DB
}

var levelDBOptions = &opt.Options{
	Compression: opt.NoCompression,
	Strict:      opt.StrictAll,
}

// OpenLevelDBStore opens or creates the database at path
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, levelDBOptions)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrStorage, "open leveldb %s: %v", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

// NewInMemoryLevelDBStore opens a LevelDB database backed by memory, used by tests and the CLI dry runs
func NewInMemoryLevelDBStore() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), levelDBOptions)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrStorage, "open in-memory leveldb: %v", err)
	}
	return &LevelDBStore{db: db}, nil
}

func dictKey(from, to models.Language, normalized string) []byte {
	return []byte(dictPrefix + models.PairKey(from, to) + "/" + normalized)
}

func storageErr(op string, err error) error {
	return contextutils.WrapErrorf(contextutils.ErrStorage, "leveldb %s: %v", op, err)
}

// Get implements OverrideStore
func (l *LevelDBStore) Get(ctx context.Context, from, to models.Language, normalized string) (result string, found bool, err error) {
	_, span := observability.TraceStoreFunction(ctx, "leveldb_get_override", observability.AttributeLanguagePair(string(from), string(to))...)
	defer observability.FinishSpan(span, &err)

	v, err := l.db.Get(dictKey(from, to, normalized), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get", err)
	}
	return string(v), true, nil
}

// Set implements OverrideStore
func (l *LevelDBStore) Set(ctx context.Context, from, to models.Language, source, translation string) error {
	_, err := l.Import(ctx, from, to, []models.OverrideEntry{{From: from, To: to, Source: source, Translation: translation}})
	return err
}

// Import writes all entries in a single batch
func (l *LevelDBStore) Import(ctx context.Context, from, to models.Language, entries []models.OverrideEntry) (n int, err error) {
	_, span := observability.TraceStoreFunction(ctx, "leveldb_import_overrides", observability.AttributeLanguagePair(string(from), string(to))...)
	defer observability.FinishSpan(span, &err)

	batch := new(leveldb.Batch)
	for _, e := range entries {
		source := models.Normalize(e.Source)
		if source == "" {
			continue
		}
		batch.Put(dictKey(from, to, source), []byte(e.Translation))
		n++
	}
	if err := l.db.Write(batch, nil); err != nil {
		return 0, storageErr("write batch", err)
	}
	return n, nil
}

// Count implements OverrideStore
func (l *LevelDBStore) Count(_ context.Context, from, to models.Language) (int, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(dictPrefix+models.PairKey(from, to)+"/")), nil)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, storageErr("iterate", err)
	}
	return n, nil
}

// Load implements HistoryStore. A corrupt record reads as an empty history.
func (l *LevelDBStore) Load(ctx context.Context, owner string) (items []models.TranslationHistoryItem, err error) {
	_, span := observability.TraceStoreFunction(ctx, "leveldb_load_history")
	defer observability.FinishSpan(span, &err)

	v, err := l.db.Get([]byte(historyPrefix+owner), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "corrupt history for %s: %v", owner, err)
	}
	return items, nil
}

// Save implements HistoryStore
func (l *LevelDBStore) Save(ctx context.Context, owner string, items []models.TranslationHistoryItem) (err error) {
	_, span := observability.TraceStoreFunction(ctx, "leveldb_save_history")
	defer observability.FinishSpan(span, &err)

	data, err := json.Marshal(items)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "encode history: %v", err)
	}
	if err := l.db.Put([]byte(historyPrefix+owner), data, nil); err != nil {
		return storageErr("put", err)
	}
	return nil
}

// Clear implements HistoryStore
func (l *LevelDBStore) Clear(_ context.Context, owner string) error {
	if err := l.db.Delete([]byte(historyPrefix+owner), nil); err != nil {
		return storageErr("delete", err)
	}
	return nil
}

// AddUpload implements UploadStore
func (l *LevelDBStore) AddUpload(_ context.Context, item models.UploadHistoryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "encode upload: %v", err)
	}
	if err := l.db.Put([]byte(uploadPrefix+item.ID), data, nil); err != nil {
		return storageErr("put", err)
	}
	return nil
}

// ListUploads implements UploadStore
func (l *LevelDBStore) ListUploads(_ context.Context) ([]models.UploadHistoryItem, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(uploadPrefix)), nil)
	defer iter.Release()

	var out []models.UploadHistoryItem
	for iter.Next() {
		var item models.UploadHistoryItem
		if err := json.Unmarshal(iter.Value(), &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	if err := iter.Error(); err != nil {
		return nil, storageErr("iterate", err)
	}
	sortUploads(out)
	return out, nil
}

// SetCredential implements CredentialStore
func (l *LevelDBStore) SetCredential(_ context.Context, cred models.Credential) error {
	data, err := json.Marshal(credentialRecord{Key: cred.Key, UpdatedAt: cred.UpdatedAt})
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "encode credential: %v", err)
	}
	if err := l.db.Put([]byte(credPrefix+cred.Service), data, nil); err != nil {
		return storageErr("put", err)
	}
	return nil
}

// GetCredential implements CredentialStore
func (l *LevelDBStore) GetCredential(_ context.Context, service string) (models.Credential, bool, error) {
	v, err := l.db.Get([]byte(credPrefix+service), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return models.Credential{}, false, nil
	}
	if err != nil {
		return models.Credential{}, false, storageErr("get", err)
	}
	var rec credentialRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return models.Credential{}, false, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "corrupt credential %s: %v", service, err)
	}
	return models.Credential{Service: service, Key: rec.Key, UpdatedAt: rec.UpdatedAt}, true, nil
}

// ListCredentials implements CredentialStore
func (l *LevelDBStore) ListCredentials(_ context.Context) ([]models.Credential, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(credPrefix)), nil)
	defer iter.Release()

	var out []models.Credential
	for iter.Next() {
		var rec credentialRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		service := string(iter.Key()[len(credPrefix):])
		out = append(out, models.Credential{Service: service, Key: rec.Key, UpdatedAt: rec.UpdatedAt})
	}
	if err := iter.Error(); err != nil {
		return nil, storageErr("iterate", err)
	}
	sortCredentials(out)
	return out, nil
}

// Close implements Store
func (l *LevelDBStore) Close() error {
	return l.db.Close()
}
