package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"borneo/internal/config"
	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/serviceinterfaces"
	contextutils "borneo/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Defaults for the OpenAI-compatible endpoint, GitHub Models unless configured otherwise
const (
	DefaultOpenAIBaseURL = "https://models.github.ai/inference"
	DefaultOpenAIModel   = "openai/gpt-4o-mini"
	defaultOpenAIVoice   = "alloy"
)

// OpenAIRequest represents a chat completion request
type OpenAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIResponse represents a non-streaming chat completion response
type OpenAIResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *APIError `json:"error,omitempty"`
}

// OpenAIStreamResponse represents one streamed chunk
type OpenAIStreamResponse struct {
	Choices []StreamChoice `json:"choices"`
	Error   *APIError      `json:"error,omitempty"`
}

// StreamChoice represents a choice in the streaming response
type StreamChoice struct {
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// StreamDelta represents the delta content in streaming
type StreamDelta struct {
	Content string `json:"content"`
}

// APIError represents an error from the API
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type openAISpeechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// OpenAIProvider talks to an OpenAI-compatible chat completions endpoint
type OpenAIProvider struct {
	name        string
	baseURL     string
	model       string
	apiKey      string
	speechModel string
	voice       string
	httpClient  *http.Client
	logger      *observability.Logger
}

// NewOpenAIProvider creates a provider from its configuration and API key
func NewOpenAIProvider(cfg config.ProviderConfig, apiKey string, logger *observability.Logger) *OpenAIProvider {
	p := &OpenAIProvider{
		name:        cfg.Name,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		apiKey:      apiKey,
		speechModel: cfg.SpeechModel,
		voice:       cfg.Voice,
		httpClient:  newProviderHTTPClient(cfg.Timeout),
		logger:      logger,
	}
	if p.name == "" {
		p.name = config.ProviderKindOpenAI
	}
	if p.baseURL == "" {
		p.baseURL = DefaultOpenAIBaseURL
	}
	if p.model == "" {
		p.model = DefaultOpenAIModel
	}
	if p.voice == "" {
		p.voice = defaultOpenAIVoice
	}
	return p
}

// Name implements serviceinterfaces.TranslationProvider
func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) newRequest(ctx context.Context, path string, payload interface{}, stream bool) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(p.baseURL, path), bytes.NewReader(body))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}
	return req, nil
}

// TranslateStream streams a translation from the chat completions endpoint
func (p *OpenAIProvider) TranslateStream(ctx context.Context, treq models.TranslationRequest, chunks chan<- string) (err error) {
	ctx, span := observability.TraceProviderFunction(ctx, "openai_translate_stream",
		append(observability.AttributeLanguagePair(string(treq.From), string(treq.To)),
			observability.AttributeProvider(p.name),
			observability.AttributeTextLength(len(treq.Text)))...)
	defer observability.FinishSpan(span, &err)

	if chunks == nil {
		span.SetAttributes(attribute.String("stream.result", "nil_chunks_channel"))
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "chunks channel is required")
	}
	if strings.TrimSpace(treq.Text) == "" {
		span.SetAttributes(attribute.String("stream.result", "empty_prompt"))
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "text is empty")
	}
	if p.apiKey == "" {
		span.SetAttributes(attribute.String("stream.result", "missing_api_key"))
		return contextutils.ErrProviderNotConfigured
	}

	startTime := time.Now()
	p.logger.Debug(ctx, "Starting streaming request", map[string]interface{}{
		"provider": p.name,
		"model":    p.model,
		"from":     treq.From,
		"to":       treq.To,
	})

	req, err := p.newRequest(ctx, "chat/completions", OpenAIRequest{
		Model:    p.model,
		Messages: []Message{{Role: "user", Content: BuildTranslatePrompt(treq)}},
		Stream:   true,
	}, true)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		span.SetAttributes(attribute.String("stream.result", "http_error"))
		return transportError(ctx, err)
	}
	defer closeBody(ctx, p.logger, resp.Body)

	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.String("stream.result", "bad_status"), attribute.Int("http.status_code", resp.StatusCode))
		return statusError(resp)
	}

	var chunkCount, totalContentLength int
	err = readSSE(ctx, resp.Body, func(data string) (bool, error) {
		var streamResp OpenAIStreamResponse
		if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
			p.logger.Warn(ctx, "Failed to parse streaming chunk", map[string]interface{}{
				"error": err.Error(),
				"data":  data,
			})
			return false, nil
		}
		if streamResp.Error != nil {
			span.SetAttributes(attribute.String("error_type", streamResp.Error.Type))
			return true, contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "streaming error: %s", streamResp.Error.Message)
		}
		if len(streamResp.Choices) == 0 {
			return false, nil
		}
		if content := streamResp.Choices[0].Delta.Content; content != "" {
			if err := sendChunk(ctx, chunks, content); err != nil {
				return true, err
			}
			chunkCount++
			totalContentLength += len(content)
		}
		return streamResp.Choices[0].FinishReason != nil, nil
	})
	if err != nil {
		span.SetAttributes(attribute.String("stream.result", "stream_error"))
		return err
	}

	span.SetAttributes(attribute.String("stream.result", "success"), attribute.Int("chunk_count", chunkCount), attribute.Int("total_content_length", totalContentLength))
	p.logger.Debug(ctx, "Streaming response completed", map[string]interface{}{
		"provider":    p.name,
		"duration":    time.Since(startTime).String(),
		"chunk_count": chunkCount,
	})
	return nil
}

// Translate requests the whole translation in one response
func (p *OpenAIProvider) Translate(ctx context.Context, treq models.TranslationRequest) (result string, err error) {
	ctx, span := observability.TraceProviderFunction(ctx, "openai_translate",
		append(observability.AttributeLanguagePair(string(treq.From), string(treq.To)),
			observability.AttributeProvider(p.name))...)
	defer observability.FinishSpan(span, &err)

	result, err = p.Generate(ctx, BuildTranslatePrompt(treq), serviceinterfaces.GenerateOptions{})
	return strings.TrimSpace(result), err
}

// Generate sends a single prompt and returns the full answer
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts serviceinterfaces.GenerateOptions) (result string, err error) {
	ctx, span := observability.TraceProviderFunction(ctx, "openai_generate", observability.AttributeProvider(p.name))
	defer observability.FinishSpan(span, &err)

	if p.apiKey == "" {
		return "", contextutils.ErrProviderNotConfigured
	}

	req, err := p.newRequest(ctx, "chat/completions", OpenAIRequest{
		Model:       p.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}, false)
	if err != nil {
		return "", err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, err)
	}
	defer closeBody(ctx, p.logger, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var out OpenAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "failed to decode response: %v", err)
	}
	if out.Error != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "provider error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

// Synthesize uses the audio/speech endpoint. Only available when a speech model is configured.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text, voice string) (audio *serviceinterfaces.SpeechAudio, err error) {
	ctx, span := observability.TraceProviderFunction(ctx, "openai_synthesize", observability.AttributeProvider(p.name))
	defer observability.FinishSpan(span, &err)

	if p.apiKey == "" {
		return nil, contextutils.ErrProviderNotConfigured
	}
	if p.speechModel == "" {
		return nil, contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "speech is not configured for provider %s", p.name)
	}
	if voice == "" {
		voice = p.voice
	}

	req, err := p.newRequest(ctx, "audio/speech", openAISpeechRequest{
		Model:          p.speechModel,
		Input:          text,
		Voice:          voice,
		ResponseFormat: "mp3",
	}, false)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer closeBody(ctx, p.logger, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "failed to read audio: %v", err)
	}
	if len(data) == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "No audio data received from API.")
	}
	return &serviceinterfaces.SpeechAudio{MimeType: "audio/mpeg", Data: data}, nil
}
