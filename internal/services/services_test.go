package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"borneo/internal/config"
	"borneo/internal/models"
	"borneo/internal/observability"
	"borneo/internal/serviceinterfaces"
	"borneo/internal/store"
	contextutils "borneo/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a scripted provider for service tests
type fakeProvider struct {
	mu        sync.Mutex
	fragments []string
	answer    string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) TranslateStream(ctx context.Context, _ models.TranslationRequest, chunks chan<- string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	for _, fr := range f.fragments {
		if err := sendChunk(ctx, chunks, fr); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeProvider) Translate(_ context.Context, _ models.TranslationRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return strings.Join(f.fragments, ""), f.err
}

func (f *fakeProvider) Generate(_ context.Context, prompt string, _ serviceinterfaces.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.answer, f.err
}

func TestProviderClient_ReconfigureSwapsKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = []config.ProviderConfig{
		{Name: "gemini", Kind: config.ProviderKindGemini, APIKey: "from-file"},
		{Name: "github", Kind: config.ProviderKindOpenAI},
		{Name: "demo", Kind: config.ProviderKindDemo},
	}
	cfg.Translation.DefaultProvider = "gemini"

	client, err := NewProviderClient(cfg, nil, observability.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.Name())
	assert.Equal(t, []string{"gemini", "github", "demo"}, client.Names())

	p, err := client.Provider("")
	require.NoError(t, err)
	assert.Equal(t, "from-file", p.(*GeminiProvider).apiKey)

	gh, err := client.Provider("github")
	require.NoError(t, err)
	assert.Empty(t, gh.(*OpenAIProvider).apiKey)

	require.NoError(t, client.Reconfigure(serviceinterfaces.Credentials{
		models.CredentialGemini: "stored-gemini",
		models.CredentialGitHub: "stored-github",
	}))

	p, err = client.Provider("gemini")
	require.NoError(t, err)
	assert.Equal(t, "stored-gemini", p.(*GeminiProvider).apiKey)
	gh, err = client.Provider("github")
	require.NoError(t, err)
	assert.Equal(t, "stored-github", gh.(*OpenAIProvider).apiKey)

	_, err = client.Provider("missing")
	assert.Error(t, err)
}

func TestProviderClient_SpeechFallsBackToCapableProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = []config.ProviderConfig{
		{Name: "demo", Kind: config.ProviderKindDemo},
		{Name: "gemini", Kind: config.ProviderKindGemini},
	}

	client, err := NewProviderClient(cfg, nil, observability.NewNopLogger())
	require.NoError(t, err)

	// Gemini supports speech but has no key
	_, err = client.Synthesize(context.Background(), "halo", "")
	assert.ErrorIs(t, err, contextutils.ErrProviderNotConfigured)
}

func TestNewProviderClient_NoProviders(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = nil
	_, err := NewProviderClient(cfg, nil, observability.NewNopLogger())
	require.Error(t, err)
}

func TestLearningService_Moderate(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		err     error
		want    ModerationResult
		prompts int
	}{
		{name: "safe", answer: " safe\n", want: ModerationResult{Safe: true, Checked: true}, prompts: 1},
		{name: "unsafe", answer: "UNSAFE", want: ModerationResult{Safe: false, Checked: true}, prompts: 1},
		{name: "unexpected answer", answer: "I cannot say", want: ModerationResult{Safe: false, Checked: true}, prompts: 1},
		{name: "fails open", err: errors.New("boom"), want: ModerationResult{Safe: true}, prompts: 1},
		{name: "missing key fails open", err: contextutils.ErrProviderNotConfigured, want: ModerationResult{Safe: true}, prompts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeProvider{answer: tt.answer, err: tt.err}
			svc := NewLearningServiceWithLogger(gen, nil, observability.NewNopLogger())
			assert.Equal(t, tt.want, svc.Moderate(context.Background(), "some text"))
			assert.Len(t, gen.prompts, tt.prompts)
		})
	}

	gen := &fakeProvider{answer: "SAFE"}
	svc := NewLearningServiceWithLogger(gen, nil, observability.NewNopLogger())
	assert.Equal(t, ModerationResult{Safe: true}, svc.Moderate(context.Background(), "   "))
	assert.Empty(t, gen.prompts)
}

func TestLearningService_Facts(t *testing.T) {
	gen := &fakeProvider{answer: "First fact. ||| Second fact.|||  |||Third fact.|||Fourth fact."}
	svc := NewLearningServiceWithLogger(gen, nil, observability.NewNopLogger())

	facts, err := svc.Facts(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"First fact.", "Second fact.", "Third fact."}, facts)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Generate 3 brief")
	assert.Contains(t, gen.prompts[0], DefaultFactsTopic)

	_, err = svc.Facts(context.Background(), "", 50)
	assert.Error(t, err)

	empty := NewLearningServiceWithLogger(&fakeProvider{answer: " ||| "}, nil, observability.NewNopLogger())
	_, err = empty.Facts(context.Background(), "weaving", 2)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeProviderResponseInvalid, contextutils.GetErrorCode(err))
}

func TestLearningService_SpeechUnavailable(t *testing.T) {
	svc := NewLearningServiceWithLogger(&fakeProvider{}, nil, observability.NewNopLogger())
	_, err := svc.Speech(context.Background(), "halo", "")
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeServiceUnavailable, contextutils.GetErrorCode(err))

	_, err = svc.Speech(context.Background(), " ", "")
	assert.Equal(t, contextutils.ErrorCodeMissingRequired, contextutils.GetErrorCode(err))
}

func TestParseDictionary(t *testing.T) {
	input := "halo,nyawi\r\n\nrumah , huma\nno comma here\n,missing source\nkata,satu, dua\nmissing target,\n"
	entries, skipped, err := ParseDictionary(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, []models.OverrideEntry{
		{Source: "halo", Translation: "nyawi"},
		{Source: "rumah", Translation: "huma"},
		{Source: "kata", Translation: "satu, dua"},
	}, entries)
}

func TestDictionaryService_Import(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewDictionaryServiceWithLogger(s, s, observability.NewNopLogger())

	item, err := svc.Import(ctx, "kamus.csv", models.Indonesian, models.Bakumpai, strings.NewReader("Halo,nyawi\nterima kasih,tarima kasih\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, item.Count)
	assert.Equal(t, "kamus.csv", item.FileName)

	got, found, err := svc.Lookup(ctx, models.Indonesian, models.Bakumpai, "  HALO ")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "nyawi", got)

	uploads, err := svc.Uploads(ctx)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, item.ID, uploads[0].ID)

	// Nothing valid, nothing recorded
	_, err = svc.Import(ctx, "empty.txt", models.Indonesian, models.Bakumpai, strings.NewReader("garbage\n"))
	require.Error(t, err)
	uploads, err = svc.Uploads(ctx)
	require.NoError(t, err)
	assert.Len(t, uploads, 1)

	_, err = svc.Import(ctx, "same.csv", models.Ngaju, models.Ngaju, strings.NewReader("a,b\n"))
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

type recordingReconfigurer struct {
	got serviceinterfaces.Credentials
}

func (r *recordingReconfigurer) Reconfigure(creds serviceinterfaces.Credentials) error {
	r.got = creds
	return nil
}

func TestCredentialsService(t *testing.T) {
	ctx := context.Background()
	target := &recordingReconfigurer{}
	svc := NewCredentialsServiceWithLogger(store.NewMemoryStore(), target, observability.NewNopLogger())

	require.NoError(t, svc.Set(ctx, "Gemini", " AIzaSy-secret-1234 "))
	assert.Equal(t, serviceinterfaces.Credentials{"gemini": "AIzaSy-secret-1234"}, target.got)

	require.NoError(t, svc.Set(ctx, "github", "ghp_abcd"))
	assert.Len(t, target.got, 2)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "****1234", list[0].Key)
	assert.Equal(t, "****abcd", list[1].Key)

	assert.Error(t, svc.Set(ctx, "deepl", "x"))
	assert.Error(t, svc.Set(ctx, "gemini", "  "))
}

func TestTranslationService_OverrideBeforeProvider(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.Set(ctx, models.Indonesian, models.Bakumpai, "halo", "nyawi"))
	provider := &fakeProvider{fragments: []string{"Hal", "o there"}}
	svc := NewTranslationServiceWithLogger(s, provider, 5000, nil, observability.NewNopLogger())

	res, err := svc.Translate(ctx, models.TranslationRequest{Text: " Halo", From: models.Indonesian, To: models.Bakumpai})
	require.NoError(t, err)
	assert.Equal(t, &models.TranslationResult{Text: "nyawi", From: models.Indonesian, To: models.Bakumpai, FromCache: true}, res)
	assert.Zero(t, provider.calls)

	res, err = svc.Translate(ctx, models.TranslationRequest{Text: "apa kabar", From: models.Indonesian, To: models.Bakumpai})
	require.NoError(t, err)
	assert.Equal(t, "Halo there", res.Text)
	assert.False(t, res.FromCache)
	assert.Equal(t, 1, provider.calls)
}

// unreadableOverrides fails every lookup
type unreadableOverrides struct {
	store.OverrideStore
}

func (unreadableOverrides) Get(context.Context, models.Language, models.Language, string) (string, bool, error) {
	return "", false, errors.New("corrupt override record")
}

func TestTranslationService_UnreadableOverrideIsAMiss(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{fragments: []string{"Hal", "o there"}}
	svc := NewTranslationServiceWithLogger(unreadableOverrides{OverrideStore: store.NewMemoryStore()}, provider, 5000, nil, observability.NewNopLogger())

	res, err := svc.Translate(ctx, models.TranslationRequest{Text: "halo", From: models.Indonesian, To: models.Bakumpai})
	require.NoError(t, err)
	assert.Equal(t, "Halo there", res.Text)
	assert.False(t, res.FromCache)
	assert.Equal(t, 1, provider.calls)
}

func TestTranslationService_TranslateStream(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{fragments: []string{"Hal", "o there"}}
	svc := NewTranslationServiceWithLogger(store.NewMemoryStore(), provider, 5000, nil, observability.NewNopLogger())

	var result *models.TranslationResult
	fragments, err := collectStream(t, func(chunks chan<- string) error {
		var err error
		result, err = svc.TranslateStream(ctx, models.TranslationRequest{Text: "halo", From: models.Indonesian, To: models.Bakumpai}, chunks)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hal", "o there"}, fragments)
	assert.Equal(t, "Halo there", result.Text)

	provider.err = contextutils.ErrProviderUnavailable
	_, err = collectStream(t, func(chunks chan<- string) error {
		_, err := svc.TranslateStream(ctx, models.TranslationRequest{Text: "halo", From: models.Indonesian, To: models.Bakumpai}, chunks)
		return err
	})
	assert.True(t, contextutils.IsRetryable(err))
}

func TestValidateTranslationRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.TranslationRequest
		wantErr bool
	}{
		{"valid", models.TranslationRequest{Text: "halo", From: models.Indonesian, To: models.Ngaju}, false},
		{"empty text", models.TranslationRequest{From: models.Indonesian, To: models.Ngaju}, true},
		{"same pair", models.TranslationRequest{Text: "halo", From: models.Ngaju, To: models.Ngaju}, true},
		{"unknown language", models.TranslationRequest{Text: "halo", From: "Klingon", To: models.Ngaju}, true},
		{"too long", models.TranslationRequest{Text: strings.Repeat("é", 11), From: models.Indonesian, To: models.Ngaju}, true},
		{"at limit counts runes", models.TranslationRequest{Text: strings.Repeat("é", 10), From: models.Indonesian, To: models.Ngaju}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTranslationRequest(tt.req, 10)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
