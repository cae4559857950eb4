package services

import (
	"context"
	"strings"
	"time"

	"borneo/internal/config"
	"borneo/internal/models"
	"borneo/internal/serviceinterfaces"
)

var demoFacts = []string{
	"The Ngaju concept of 'Huma Betang' describes life in a communal longhouse where many families share one roof and settle matters together.",
	"Bakumpai communities live along the Barito river, and river travel shapes much of their vocabulary for places and directions.",
	"The 'Tiwah' ceremony is a secondary funeral rite of the Ngaju that escorts the souls of the dead to the afterlife.",
}

// DemoProvider produces deterministic translations without network access.
// It is used when no remote provider is configured.
type DemoProvider struct {
	name  string
	delay time.Duration
}

// NewDemoProvider creates a demo provider. delay is waited before the first fragment.
func NewDemoProvider(cfg config.ProviderConfig) *DemoProvider {
	name := cfg.Name
	if name == "" {
		name = config.ProviderKindDemo
	}
	return &DemoProvider{name: name, delay: cfg.DemoDelay}
}

// Name implements serviceinterfaces.TranslationProvider
func (d *DemoProvider) Name() string { return d.name }

func (d *DemoProvider) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func demoTranslation(req models.TranslationRequest) string {
	return "[" + string(req.To) + "] " + strings.TrimSpace(req.Text)
}

// TranslateStream emits the demo translation one word at a time
func (d *DemoProvider) TranslateStream(ctx context.Context, req models.TranslationRequest, chunks chan<- string) error {
	if err := d.wait(ctx, d.delay); err != nil {
		return err
	}
	words := strings.SplitAfter(demoTranslation(req), " ")
	for i, w := range words {
		if i > 0 {
			if err := d.wait(ctx, d.delay/10); err != nil {
				return err
			}
		}
		if err := sendChunk(ctx, chunks, w); err != nil {
			return err
		}
	}
	return nil
}

// Translate returns the demo translation
func (d *DemoProvider) Translate(ctx context.Context, req models.TranslationRequest) (string, error) {
	if err := d.wait(ctx, d.delay); err != nil {
		return "", err
	}
	return demoTranslation(req), nil
}

// Generate answers moderation prompts with SAFE and anything else with canned facts
func (d *DemoProvider) Generate(ctx context.Context, prompt string, _ serviceinterfaces.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(prompt, `"UNSAFE"`) {
		return "SAFE", nil
	}
	return strings.Join(demoFacts, FactSeparator), nil
}
