package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"borneo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslatorHandler_InitialState(t *testing.T) {
	ts := newTestServer(t)
	state := ts.browser(t).state()

	assert.Equal(t, models.Indonesian, state.From)
	assert.Equal(t, models.Bakumpai, state.To)
	assert.Equal(t, models.StatusIdle, state.Status)
	assert.Empty(t, state.Input)
	assert.Equal(t, 1, ts.sessions.Len())
}

func TestTranslatorHandler_SubmitDebouncesThenRetryTranslates(t *testing.T) {
	ts := newTestServer(t)
	b := ts.browser(t)

	code, data := b.do(http.MethodPost, "/v1/session/input", SubmitInputRequest{Text: "apa kabar"})
	require.Equal(t, http.StatusAccepted, code, string(data))
	var pending models.TranslationState
	require.NoError(t, json.Unmarshal(data, &pending))
	assert.Equal(t, models.StatusPending, pending.Status)
	assert.Equal(t, "apa kabar", pending.Input)

	code, _ = b.do(http.MethodPost, "/v1/session/retry", nil)
	require.Equal(t, http.StatusAccepted, code)

	state := b.waitStatus(models.StatusDone)
	assert.Equal(t, "[Bakumpai] apa kabar", state.Output)
	assert.False(t, state.FromCache)

	code, data = b.do(http.MethodGet, "/v1/session/history", nil)
	require.Equal(t, http.StatusOK, code)
	var history struct {
		History []models.TranslationHistoryItem `json:"history"`
	}
	require.NoError(t, json.Unmarshal(data, &history))
	require.Len(t, history.History, 1)
	assert.Equal(t, "apa kabar", history.History[0].InputText)
	assert.Equal(t, "[Bakumpai] apa kabar", history.History[0].OutputText)
}

func TestTranslatorHandler_DebounceElapses(t *testing.T) {
	ts := newTestServer(t)
	b := ts.browser(t)

	code, _ := b.do(http.MethodPost, "/v1/session/input", SubmitInputRequest{Text: "halo", To: "Ngaju"})
	require.Equal(t, http.StatusAccepted, code)

	ts.clock.Add(ts.cfg.Translation.Debounce)

	state := b.waitStatus(models.StatusDone)
	assert.Equal(t, models.Ngaju, state.To)
	assert.Equal(t, "[Ngaju] halo", state.Output)
}

func TestTranslatorHandler_OverrideIsUsed(t *testing.T) {
	ts := newTestServer(t)
	b := ts.browser(t)
	require.NoError(t, ts.store.Set(t.Context(), models.Indonesian, models.Bakumpai, "Terima kasih", "Tarima kasih"))

	b.do(http.MethodPost, "/v1/session/input", SubmitInputRequest{Text: "  terima KASIH "})
	b.do(http.MethodPost, "/v1/session/retry", nil)

	state := b.waitStatus(models.StatusDone)
	assert.Equal(t, "Tarima kasih", state.Output)
	assert.True(t, state.FromCache)
}

func TestTranslatorHandler_SessionsArePerBrowser(t *testing.T) {
	ts := newTestServer(t)
	first := ts.browser(t)
	second := ts.browser(t)

	first.do(http.MethodPost, "/v1/session/input", SubmitInputRequest{Text: "satu"})

	assert.Equal(t, "satu", first.state().Input)
	assert.Empty(t, second.state().Input)
	assert.Equal(t, 2, ts.sessions.Len())
}

func TestTranslatorHandler_SetLanguagesMovesCollidingTarget(t *testing.T) {
	ts := newTestServer(t)
	b := ts.browser(t)

	code, data := b.do(http.MethodPut, "/v1/session/languages", LanguagesRequest{From: "Bakumpai", To: "bkm"})
	require.Equal(t, http.StatusOK, code, string(data))

	var state models.TranslationState
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, models.Bakumpai, state.From)
	assert.NotEqual(t, state.From, state.To)
}

func TestTranslatorHandler_SetLanguagesRejectsUnknown(t *testing.T) {
	ts := newTestServer(t)
	code, data := ts.browser(t).do(http.MethodPut, "/v1/session/languages", LanguagesRequest{From: "Klingon", To: "id"})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_INPUT", decode(t, data)["code"])
}

func TestTranslatorHandler_InputSchemaViolation(t *testing.T) {
	ts := newTestServer(t)
	code, data := ts.browser(t).do(http.MethodPost, "/v1/session/input", map[string]interface{}{"from": "id"})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_FAILED", decode(t, data)["code"])
}

func TestTranslatorHandler_Swap(t *testing.T) {
	ts := newTestServer(t)
	b := ts.browser(t)

	b.do(http.MethodPost, "/v1/session/input", SubmitInputRequest{Text: "halo"})
	b.do(http.MethodPost, "/v1/session/retry", nil)
	b.waitStatus(models.StatusDone)

	code, data := b.do(http.MethodPost, "/v1/session/swap", nil)
	require.Equal(t, http.StatusOK, code)

	var state models.TranslationState
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, models.Bakumpai, state.From)
	assert.Equal(t, models.Indonesian, state.To)
	assert.Equal(t, "[Bakumpai] halo", state.Input)
	assert.Equal(t, "halo", state.Output)
}

func TestTranslatorHandler_RestoreAndClearHistory(t *testing.T) {
	ts := newTestServer(t)
	b := ts.browser(t)

	b.do(http.MethodPost, "/v1/session/input", SubmitInputRequest{Text: "pagi"})
	b.do(http.MethodPost, "/v1/session/retry", nil)
	b.waitStatus(models.StatusDone)

	_, data := b.do(http.MethodGet, "/v1/session/history", nil)
	var history struct {
		History []models.TranslationHistoryItem `json:"history"`
	}
	require.NoError(t, json.Unmarshal(data, &history))
	require.Len(t, history.History, 1)

	b.do(http.MethodPost, "/v1/session/input", SubmitInputRequest{Text: ""})
	assert.Empty(t, b.state().Output)

	code, data := b.do(http.MethodPost, "/v1/session/history/"+history.History[0].ID+"/restore", nil)
	require.Equal(t, http.StatusOK, code, string(data))
	restored := b.state()
	assert.Equal(t, "pagi", restored.Input)
	assert.Equal(t, "[Bakumpai] pagi", restored.Output)
	assert.Equal(t, models.StatusDone, restored.Status)

	code, _ = b.do(http.MethodPost, "/v1/session/history/missing/restore", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = b.do(http.MethodDelete, "/v1/session/history", nil)
	assert.Equal(t, http.StatusNoContent, code)
	_, data = b.do(http.MethodGet, "/v1/session/history", nil)
	require.NoError(t, json.Unmarshal(data, &history))
	assert.Empty(t, history.History)
}

func TestTranslatorHandler_InputTooLong(t *testing.T) {
	ts := newTestServer(t)
	long := make([]rune, ts.cfg.Translation.MaxTextLength+1)
	for i := range long {
		long[i] = 'a'
	}

	code, _ := ts.browser(t).do(http.MethodPost, "/v1/session/input", SubmitInputRequest{Text: string(long)})
	assert.Equal(t, http.StatusBadRequest, code)
}
