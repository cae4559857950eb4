package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranslationRequest is one unit of work for a provider
type TranslationRequest struct {
	Text string   `json:"text" validate:"required"`
	From Language `json:"from" validate:"required"`
	To   Language `json:"to" validate:"required"`
}

// TranslationHistoryItem records a completed translation. Items are never edited.
type TranslationHistoryItem struct {
	ID         string    `json:"id"`
	From       Language  `json:"from"`
	To         Language  `json:"to"`
	InputText  string    `json:"inputText"`
	OutputText string    `json:"outputText"`
	Date       time.Time `json:"date"`
}

// NewHistoryItem stamps a history entry with an id and date
func NewHistoryItem(from, to Language, input, output string, now time.Time) TranslationHistoryItem {
	return TranslationHistoryItem{
		ID:         fmt.Sprintf("hist-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		From:       from,
		To:         to,
		InputText:  input,
		OutputText: output,
		Date:       now.UTC(),
	}
}

// TranslationStatus is the lifecycle state of the orchestrator output
type TranslationStatus string

const (
	// StatusIdle means nothing is pending
	StatusIdle TranslationStatus = "idle"
	// StatusPending means a debounce timer is armed
	StatusPending TranslationStatus = "pending"
	// StatusStreaming means a provider session is live
	StatusStreaming TranslationStatus = "streaming"
	// StatusDone means the last session completed
	StatusDone TranslationStatus = "done"
	// StatusError means the last session failed
	StatusError TranslationStatus = "error"
)

// TranslationState is the snapshot pushed to clients after every change
type TranslationState struct {
	Input      string            `json:"input"`
	Output     string            `json:"output"`
	From       Language          `json:"from"`
	To         Language          `json:"to"`
	Status     TranslationStatus `json:"status"`
	Error      string            `json:"error,omitempty"`
	FromCache  bool              `json:"fromCache"`
	Generation uint64            `json:"generation"`
}

// TranslationResult is returned by the one-shot translate path
type TranslationResult struct {
	Text      string   `json:"text"`
	From      Language `json:"from"`
	To        Language `json:"to"`
	FromCache bool     `json:"fromCache"`
}
