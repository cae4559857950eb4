package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/serviceinterfaces"
	"borneo/internal/store"
	contextutils "borneo/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ValidateTranslationRequest checks a request before any lookup. maxLen counts characters, 0 disables the limit.
func ValidateTranslationRequest(req models.TranslationRequest, maxLen int) error {
	if err := contextutils.ValidateStruct(req); err != nil {
		return err
	}
	if !req.From.Valid() || !req.To.Valid() {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported language pair %s-%s", req.From, req.To)
	}
	if req.From == req.To {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "source and target language must differ")
	}
	if maxLen > 0 && utf8.RuneCountInString(req.Text) > maxLen {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "Text cannot exceed %d characters", maxLen)
	}
	return nil
}

// TranslationServiceInterface is the one-shot translation path used by the
// stateless API and the CLI
type TranslationServiceInterface interface {
	Translate(ctx context.Context, req models.TranslationRequest) (*models.TranslationResult, error)
	TranslateStream(ctx context.Context, req models.TranslationRequest, chunks chan<- string) (*models.TranslationResult, error)
}

// TranslationService answers from the override dictionary first and the provider otherwise
type TranslationService struct {
	overrides     store.OverrideStore
	provider      serviceinterfaces.TranslationProvider
	maxTextLength int
	metrics       *observability.TranslatorMetrics
	logger        *observability.Logger
}

// NewTranslationServiceWithLogger creates a one-shot translation service
func NewTranslationServiceWithLogger(overrides store.OverrideStore, provider serviceinterfaces.TranslationProvider, maxTextLength int, metrics *observability.TranslatorMetrics, logger *observability.Logger) *TranslationService {
	return &TranslationService{
		overrides:     overrides,
		provider:      provider,
		maxTextLength: maxTextLength,
		metrics:       metrics,
		logger:        logger,
	}
}

// lookupOverride treats storage failures as a miss
func (s *TranslationService) lookupOverride(ctx context.Context, req models.TranslationRequest) (string, bool) {
	translation, found, err := s.overrides.Get(ctx, req.From, req.To, models.Normalize(req.Text))
	if err != nil {
		s.logger.Warn(ctx, "Override lookup failed, using provider", map[string]interface{}{"error": err.Error()})
		return "", false
	}
	return translation, found
}

// Translate returns the override or the provider's full answer
func (s *TranslationService) Translate(ctx context.Context, req models.TranslationRequest) (result *models.TranslationResult, err error) {
	ctx, span := observability.TraceTranslatorFunction(ctx, "translate_once",
		append(observability.AttributeLanguagePair(string(req.From), string(req.To)), observability.AttributeTextLength(len(req.Text)))...)
	defer observability.FinishSpan(span, &err)

	if err := ValidateTranslationRequest(req, s.maxTextLength); err != nil {
		return nil, err
	}
	s.metrics.Started(ctx, string(req.From), string(req.To))

	if translation, ok := s.lookupOverride(ctx, req); ok {
		span.SetAttributes(attribute.Bool("translation.override", true))
		s.metrics.Completed(ctx, string(req.From), string(req.To), true)
		return &models.TranslationResult{Text: translation, From: req.From, To: req.To, FromCache: true}, nil
	}

	text, err := s.provider.Translate(ctx, req)
	if err != nil {
		s.metrics.Failed(ctx, string(req.From), string(req.To))
		return nil, err
	}
	s.metrics.Completed(ctx, string(req.From), string(req.To), false)
	return &models.TranslationResult{Text: strings.TrimSpace(text), From: req.From, To: req.To}, nil
}

// TranslateStream forwards provider fragments to chunks and returns the assembled
// result. An override is sent as a single fragment. chunks is not closed.
func (s *TranslationService) TranslateStream(ctx context.Context, req models.TranslationRequest, chunks chan<- string) (result *models.TranslationResult, err error) {
	ctx, span := observability.TraceTranslatorFunction(ctx, "translate_stream_once",
		append(observability.AttributeLanguagePair(string(req.From), string(req.To)), observability.AttributeTextLength(len(req.Text)))...)
	defer observability.FinishSpan(span, &err)

	if err := ValidateTranslationRequest(req, s.maxTextLength); err != nil {
		return nil, err
	}
	s.metrics.Started(ctx, string(req.From), string(req.To))

	if translation, ok := s.lookupOverride(ctx, req); ok {
		if err := sendChunk(ctx, chunks, translation); err != nil {
			return nil, err
		}
		s.metrics.Completed(ctx, string(req.From), string(req.To), true)
		return &models.TranslationResult{Text: translation, From: req.From, To: req.To, FromCache: true}, nil
	}

	// Tee the fragments so the full text is known when the provider returns
	inner := make(chan string)
	done := make(chan struct{})
	var sb strings.Builder
	var forwardErr error
	go func() {
		defer close(done)
		for fragment := range inner {
			sb.WriteString(fragment)
			s.metrics.Fragment(ctx)
			if forwardErr == nil {
				forwardErr = sendChunk(ctx, chunks, fragment)
			}
		}
	}()

	err = s.provider.TranslateStream(ctx, req, inner)
	close(inner)
	<-done
	if err == nil {
		err = forwardErr
	}
	if err != nil {
		s.metrics.Failed(ctx, string(req.From), string(req.To))
		return nil, err
	}

	s.metrics.Completed(ctx, string(req.From), string(req.To), false)
	return &models.TranslationResult{Text: sb.String(), From: req.From, To: req.To}, nil
}
