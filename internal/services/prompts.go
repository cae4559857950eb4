package services

import (
	"fmt"
	"strings"

	"borneo/internal/models"
)

// FactSeparator splits the facts returned by the model
const FactSeparator = "|||"

// DefaultFactsTopic is used when no topic is requested
const DefaultFactsTopic = "their languages (Ngaju, Bakumpai) or traditions"

// BuildTranslatePrompt asks for a bare translation of text
func BuildTranslatePrompt(req models.TranslationRequest) string {
	return fmt.Sprintf("Translate the following text from %s to %s. Provide only the translation, without any extra explanation or context. Text: %q",
		req.From, req.To, req.Text)
}

// BuildModerationPrompt asks for a single SAFE or UNSAFE verdict
func BuildModerationPrompt(text string) string {
	return fmt.Sprintf(`Analyze the following text for sensitive content. Categories to check for include hate speech, harassment, violence, self-harm, sexually explicit content, and dangerous goods.
Respond with only a single word: "SAFE" if the text is not sensitive in any of these categories, or "UNSAFE" if it is. Do not provide any explanation.

Text: %q`, text)
}

// BuildFactsPrompt asks for count short facts separated by FactSeparator
func BuildFactsPrompt(count int, topic string) string {
	if strings.TrimSpace(topic) == "" {
		topic = DefaultFactsTopic
	}
	return fmt.Sprintf(`Generate %d brief, interesting, and distinct cultural facts about the Dayak people of Borneo, particularly related to %s.
Present each fact as a short, self-contained paragraph.
Separate each fact with %q.
Do not include titles or numbering.
Example: The Ngaju concept of 'Huma Betang' is a longhouse philosophy...%sBakumpai people, living along rivers...%sThe 'Tiwah' ceremony is a complex secondary funeral rite...`,
		count, topic, FactSeparator, FactSeparator, FactSeparator)
}

// SplitFacts splits a model answer on FactSeparator, dropping blank entries
func SplitFacts(answer string) []string {
	parts := strings.Split(strings.TrimSpace(answer), FactSeparator)
	facts := make([]string, 0, len(parts))
	for _, p := range parts {
		if f := strings.TrimSpace(p); f != "" {
			facts = append(facts, f)
		}
	}
	return facts
}
