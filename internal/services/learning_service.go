package services

import (
	"context"
	"errors"
	"strings"

	"borneo/internal/observability"
	"borneo/internal/serviceinterfaces"
	contextutils "borneo/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultFactCount is how many facts are requested when none is given
const DefaultFactCount = 3

// maxFactCount bounds a facts request
const maxFactCount = 10

// ModerationResult is the outcome of a content check
type ModerationResult struct {
	Safe bool `json:"safe"`
	// Checked is false when the check was skipped or failed and Safe is the fail-open default
	Checked bool `json:"checked"`
}

// LearningServiceInterface defines the cultural content features: moderation, facts and speech
type LearningServiceInterface interface {
	Moderate(ctx context.Context, text string) ModerationResult
	Facts(ctx context.Context, topic string, count int) ([]string, error)
	Speech(ctx context.Context, text, voice string) (*serviceinterfaces.SpeechAudio, error)
}

// LearningService implements LearningServiceInterface on top of the provider client
type LearningService struct {
	generator serviceinterfaces.TextGenerator
	speech    serviceinterfaces.SpeechSynthesizer
	logger    *observability.Logger
}

// NewLearningServiceWithLogger creates a learning service. speech may be nil.
func NewLearningServiceWithLogger(generator serviceinterfaces.TextGenerator, speech serviceinterfaces.SpeechSynthesizer, logger *observability.Logger) *LearningService {
	return &LearningService{generator: generator, speech: speech, logger: logger}
}

// Moderate asks the provider whether text is safe. Any failure, including a
// missing API key, lets the text through.
func (s *LearningService) Moderate(ctx context.Context, text string) ModerationResult {
	ctx, span := observability.TraceLearningFunction(ctx, "moderate", observability.AttributeTextLength(len(text)))
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return ModerationResult{Safe: true, Checked: false}
	}

	zero := 0.0
	answer, err := s.generator.Generate(ctx, BuildModerationPrompt(text), serviceinterfaces.GenerateOptions{Temperature: &zero})
	if err != nil {
		if errors.Is(err, contextutils.ErrProviderNotConfigured) {
			s.logger.Warn(ctx, "API Key not configured. Moderation check skipped.")
		} else {
			s.logger.Error(ctx, "Moderation check failed, allowing content", err)
		}
		span.SetAttributes(attribute.String("moderation.result", "skipped"))
		return ModerationResult{Safe: true, Checked: false}
	}

	safe := strings.ToUpper(strings.TrimSpace(answer)) == "SAFE"
	span.SetAttributes(attribute.Bool("moderation.safe", safe))
	return ModerationResult{Safe: safe, Checked: true}
}

// Facts returns count short cultural facts about the Dayak people
func (s *LearningService) Facts(ctx context.Context, topic string, count int) (facts []string, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "facts", attribute.String("facts.topic", topic))
	defer observability.FinishSpan(span, &err)

	if count <= 0 {
		count = DefaultFactCount
	}
	if count > maxFactCount {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "at most %d facts can be requested", maxFactCount)
	}

	answer, err := s.generator.Generate(ctx, BuildFactsPrompt(count, topic), serviceinterfaces.GenerateOptions{})
	if err != nil {
		return nil, err
	}
	facts = SplitFacts(answer)
	if len(facts) == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "no facts in response")
	}
	if len(facts) > count {
		facts = facts[:count]
	}
	span.SetAttributes(attribute.Int("facts.count", len(facts)))
	return facts, nil
}

// Speech synthesizes text
func (s *LearningService) Speech(ctx context.Context, text, voice string) (audio *serviceinterfaces.SpeechAudio, err error) {
	ctx, span := observability.TraceLearningFunction(ctx, "speech", observability.AttributeTextLength(len(text)))
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(text) == "" {
		return nil, contextutils.WrapErrorf(contextutils.ErrMissingRequired, "text is required")
	}
	if s.speech == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "speech is not available")
	}
	return s.speech.Synthesize(ctx, text, voice)
}
