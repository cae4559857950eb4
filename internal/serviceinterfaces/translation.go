// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"borneo/internal/models"
)

// TranslationProvider turns text in one language into another
type TranslationProvider interface {
	// Name identifies the provider in logs and traces
	Name() string

	// TranslateStream sends translated fragments to chunks in arrival order and returns
	// once the stream is finished. The caller owns chunks; implementations never close it.
	TranslateStream(ctx context.Context, req models.TranslationRequest, chunks chan<- string) error

	// Translate returns the whole translation in one response
	Translate(ctx context.Context, req models.TranslationRequest) (string, error)
}

// GenerateOptions tunes a single text generation call
type GenerateOptions struct {
	Temperature *float64
	MaxTokens   int
}

// TextGenerator answers free-form prompts, used for moderation and cultural facts
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// SpeechAudio is synthesized speech
type SpeechAudio struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// SpeechSynthesizer reads text aloud
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*SpeechAudio, error)
}

// Provider is a configured backend. Speech support is optional and discovered
// through a SpeechSynthesizer type assertion.
type Provider interface {
	TranslationProvider
	TextGenerator
}

// Credentials maps a service name (gemini, github) to its API key
type Credentials map[string]string
