package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
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

// Defaults for the Gemini generative language API
const (
	DefaultGeminiBaseURL     = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultGeminiSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultGeminiVoice       = "Kore"

	// GeminiSpeechMimeType describes the raw audio returned by the speech model
	GeminiSpeechMimeType = "audio/L16;codec=pcm;rate=24000"
)

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiPrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig geminiPrebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiGenerationConfig struct {
	Temperature        *float64              `json:"temperature,omitempty"`
	MaxOutputTokens    int                   `json:"maxOutputTokens,omitempty"`
	ThinkingConfig     *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
	ResponseModalities []string              `json:"responseModalities,omitempty"`
	SpeechConfig       *geminiSpeechConfig   `json:"speechConfig,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// text concatenates the text parts of the first candidate
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// check turns an in-body error or a blocked prompt into an application error
func (r *geminiResponse) check() error {
	if r.Error != nil {
		return contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "gemini error %d %s: %s", r.Error.Code, r.Error.Status, r.Error.Message)
	}
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return contextutils.WrapErrorf(contextutils.ErrContentRejected, "prompt blocked: %s", r.PromptFeedback.BlockReason)
	}
	return nil
}

// GeminiProvider calls the Gemini generateContent API over REST
type GeminiProvider struct {
	name        string
	baseURL     string
	model       string
	apiKey      string
	speechModel string
	voice       string
	httpClient  *http.Client
	logger      *observability.Logger
}

// NewGeminiProvider creates a provider from its configuration and API key
func NewGeminiProvider(cfg config.ProviderConfig, apiKey string, logger *observability.Logger) *GeminiProvider {
	p := &GeminiProvider{
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
		p.name = config.ProviderKindGemini
	}
	if p.baseURL == "" {
		p.baseURL = DefaultGeminiBaseURL
	}
	if p.model == "" {
		p.model = DefaultGeminiModel
	}
	if p.speechModel == "" {
		p.speechModel = DefaultGeminiSpeechModel
	}
	if p.voice == "" {
		p.voice = DefaultGeminiVoice
	}
	return p
}

// Name implements serviceinterfaces.TranslationProvider
func (p *GeminiProvider) Name() string { return p.name }

// thinkingOff disables thinking on flash models, which accept a zero budget
func (p *GeminiProvider) thinkingOff() *geminiThinkingConfig {
	if strings.Contains(p.model, "flash") {
		return &geminiThinkingConfig{ThinkingBudget: 0}
	}
	return nil
}

func (p *GeminiProvider) post(ctx context.Context, model, method string, payload geminiRequest, stream bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "failed to marshal request: %w", err)
	}
	url := joinURL(p.baseURL, fmt.Sprintf("v1beta/models/%s:%s", model, method))
	if stream {
		url += "?alt=sse"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderRequestFailed, "failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-goog-api-key", p.apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer closeBody(ctx, p.logger, resp.Body)
		return nil, statusError(resp)
	}
	return resp, nil
}

func userPrompt(prompt string) []geminiContent {
	return []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
}

// TranslateStream streams a translation using streamGenerateContent with SSE framing
func (p *GeminiProvider) TranslateStream(ctx context.Context, treq models.TranslationRequest, chunks chan<- string) (err error) {
	ctx, span := observability.TraceProviderFunction(ctx, "gemini_translate_stream",
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
	resp, err := p.post(ctx, p.model, "streamGenerateContent", geminiRequest{
		Contents:         userPrompt(BuildTranslatePrompt(treq)),
		GenerationConfig: &geminiGenerationConfig{ThinkingConfig: p.thinkingOff()},
	}, true)
	if err != nil {
		span.SetAttributes(attribute.String("stream.result", "request_failed"))
		return err
	}
	defer closeBody(ctx, p.logger, resp.Body)

	// Leading whitespace is dropped so the concatenated output matches the trimmed one-shot result
	started := false
	var chunkCount int
	err = readSSE(ctx, resp.Body, func(data string) (bool, error) {
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			p.logger.Warn(ctx, "Failed to parse streaming chunk", map[string]interface{}{
				"error": err.Error(),
				"data":  data,
			})
			return false, nil
		}
		if err := chunk.check(); err != nil {
			return true, err
		}
		fragment := chunk.text()
		if !started {
			fragment = strings.TrimLeft(fragment, " \t\r\n")
		}
		if fragment == "" {
			return false, nil
		}
		started = true
		chunkCount++
		return false, sendChunk(ctx, chunks, fragment)
	})
	if err != nil {
		span.SetAttributes(attribute.String("stream.result", "stream_error"))
		return err
	}

	span.SetAttributes(attribute.String("stream.result", "success"), attribute.Int("chunk_count", chunkCount))
	p.logger.Debug(ctx, "Streaming response completed", map[string]interface{}{
		"provider":    p.name,
		"duration":    time.Since(startTime).String(),
		"chunk_count": chunkCount,
	})
	return nil
}

// Translate requests the whole translation in one response
func (p *GeminiProvider) Translate(ctx context.Context, treq models.TranslationRequest) (result string, err error) {
	ctx, span := observability.TraceProviderFunction(ctx, "gemini_translate",
		append(observability.AttributeLanguagePair(string(treq.From), string(treq.To)),
			observability.AttributeProvider(p.name))...)
	defer observability.FinishSpan(span, &err)

	result, err = p.generate(ctx, BuildTranslatePrompt(treq), &geminiGenerationConfig{ThinkingConfig: p.thinkingOff()})
	return strings.TrimSpace(result), err
}

// Generate sends a single prompt and returns the full answer
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts serviceinterfaces.GenerateOptions) (result string, err error) {
	ctx, span := observability.TraceProviderFunction(ctx, "gemini_generate", observability.AttributeProvider(p.name))
	defer observability.FinishSpan(span, &err)

	gen := &geminiGenerationConfig{
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxTokens,
		ThinkingConfig:  p.thinkingOff(),
	}
	return p.generate(ctx, prompt, gen)
}

func (p *GeminiProvider) generate(ctx context.Context, prompt string, gen *geminiGenerationConfig) (string, error) {
	if p.apiKey == "" {
		return "", contextutils.ErrProviderNotConfigured
	}
	resp, err := p.post(ctx, p.model, "generateContent", geminiRequest{
		Contents:         userPrompt(prompt),
		GenerationConfig: gen,
	}, false)
	if err != nil {
		return "", err
	}
	defer closeBody(ctx, p.logger, resp.Body)

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "failed to decode response: %v", err)
	}
	if err := out.check(); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "no candidates in response")
	}
	return out.text(), nil
}

// Synthesize reads text aloud with a prebuilt voice. The audio is 24kHz mono 16-bit PCM.
func (p *GeminiProvider) Synthesize(ctx context.Context, text, voice string) (audio *serviceinterfaces.SpeechAudio, err error) {
	ctx, span := observability.TraceProviderFunction(ctx, "gemini_synthesize",
		observability.AttributeProvider(p.name), observability.AttributeTextLength(len(text)))
	defer observability.FinishSpan(span, &err)

	if p.apiKey == "" {
		return nil, contextutils.ErrProviderNotConfigured
	}
	if voice == "" {
		voice = p.voice
	}

	resp, err := p.post(ctx, p.speechModel, "generateContent", geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{PrebuiltVoiceConfig: geminiPrebuiltVoiceConfig{VoiceName: voice}},
			},
		},
	}, false)
	if err != nil {
		return nil, err
	}
	defer closeBody(ctx, p.logger, resp.Body)

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "failed to decode response: %v", err)
	}
	if err := out.check(); err != nil {
		return nil, err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].InlineData == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "No audio data received from API.")
	}

	inline := out.Candidates[0].Content.Parts[0].InlineData
	data, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrProviderResponseInvalid, "invalid audio encoding: %v", err)
	}
	mime := inline.MimeType
	if mime == "" {
		mime = GeminiSpeechMimeType
	}
	return &serviceinterfaces.SpeechAudio{MimeType: mime, Data: data}, nil
}
