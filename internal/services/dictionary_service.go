package services

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/store"
	contextutils "borneo/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// DictionaryServiceInterface manages the override dictionary
type DictionaryServiceInterface interface {
	Import(ctx context.Context, fileName string, from, to models.Language, r io.Reader) (*models.UploadHistoryItem, error)
	Lookup(ctx context.Context, from, to models.Language, text string) (string, bool, error)
	Uploads(ctx context.Context) ([]models.UploadHistoryItem, error)
}

// DictionaryService implements DictionaryServiceInterface
type DictionaryService struct {
	overrides store.OverrideStore
	uploads   store.UploadStore
	logger    *observability.Logger
}

// NewDictionaryServiceWithLogger creates a dictionary service
func NewDictionaryServiceWithLogger(overrides store.OverrideStore, uploads store.UploadStore, logger *observability.Logger) *DictionaryService {
	return &DictionaryService{overrides: overrides, uploads: uploads, logger: logger}
}

// ParseDictionary reads "source,translation" lines. The line is split on the first
// comma only, so translations may contain commas. Lines missing either side are skipped.
func ParseDictionary(r io.Reader) (entries []models.OverrideEntry, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		source, target, ok := strings.Cut(line, ",")
		source, target = strings.TrimSpace(source), strings.TrimSpace(target)
		if !ok || source == "" || target == "" {
			skipped++
			continue
		}
		entries = append(entries, models.OverrideEntry{Source: source, Translation: target})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "failed to read dictionary file: %v", err)
	}
	return entries, skipped, nil
}

// Import parses a dictionary file and stores its entries for the pair. An upload
// record is kept only when at least one entry was stored.
func (s *DictionaryService) Import(ctx context.Context, fileName string, from, to models.Language, r io.Reader) (item *models.UploadHistoryItem, err error) {
	ctx, span := observability.TraceDictionaryFunction(ctx, "import",
		append(observability.AttributeLanguagePair(string(from), string(to)), attribute.String("file.name", fileName))...)
	defer observability.FinishSpan(span, &err)

	if !from.Valid() || !to.Valid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported language pair %s-%s", from, to)
	}
	if from == to {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "source and target language must differ")
	}

	entries, skipped, err := ParseDictionary(r)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].From, entries[i].To = from, to
	}

	n, err := s.overrides.Import(ctx, from, to, entries)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("dictionary.imported", n), attribute.Int("dictionary.skipped", skipped))
	if n == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "no valid \"source,translation\" lines in %s", fileName)
	}

	item = &models.UploadHistoryItem{
		ID:       uuid.NewString(),
		FileName: fileName,
		From:     from,
		To:       to,
		Count:    n,
		Date:     time.Now().UTC(),
	}
	if err := s.uploads.AddUpload(ctx, *item); err != nil {
		// The entries are stored, only the record is lost
		s.logger.Error(ctx, "Failed to record dictionary upload", err, map[string]interface{}{"file_name": fileName})
	}

	s.logger.Info(ctx, "Dictionary imported", map[string]interface{}{
		"file_name": fileName,
		"from":      from,
		"to":        to,
		"imported":  n,
		"skipped":   skipped,
	})
	return item, nil
}

// Lookup normalizes text and reads the override for the pair
func (s *DictionaryService) Lookup(ctx context.Context, from, to models.Language, text string) (string, bool, error) {
	return s.overrides.Get(ctx, from, to, models.Normalize(text))
}

// Uploads lists the upload records, most recent first
func (s *DictionaryService) Uploads(ctx context.Context) ([]models.UploadHistoryItem, error) {
	return s.uploads.ListUploads(ctx)
}
