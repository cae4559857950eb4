package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"borneo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslationHandler_JSON(t *testing.T) {
	ts := newTestServer(t)
	code, data := ts.browser(t).do(http.MethodPost, "/v1/translate", TranslateRequest{Text: "halo", From: "id", To: "nij"})
	require.Equal(t, http.StatusOK, code, string(data))

	var result models.TranslationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "[Ngaju] halo", result.Text)
	assert.Equal(t, models.Indonesian, result.From)
	assert.Equal(t, models.Ngaju, result.To)
	assert.False(t, result.FromCache)
}

func TestTranslationHandler_Override(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.Set(t.Context(), models.Indonesian, models.Ngaju, "halo", "tabe"))

	_, data := ts.browser(t).do(http.MethodPost, "/v1/translate", TranslateRequest{Text: "HALO", From: "id", To: "nij"})
	var result models.TranslationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "tabe", result.Text)
	assert.True(t, result.FromCache)
}

func TestTranslationHandler_Validation(t *testing.T) {
	ts := newTestServer(t)
	b := ts.browser(t)

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{name: "missing text", body: map[string]string{"from": "id", "to": "bkm"}, code: "VALIDATION_FAILED"},
		{name: "unknown language", body: TranslateRequest{Text: "halo", From: "id", To: "xx"}, code: "INVALID_INPUT"},
		{name: "same language", body: TranslateRequest{Text: "halo", From: "id", To: "Indonesian"}, code: "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := b.do(http.MethodPost, "/v1/translate", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.code, decode(t, data)["code"])
		})
	}
}

func TestTranslationHandler_EventStream(t *testing.T) {
	ts := newTestServer(t)
	body, err := json.Marshal(TranslateRequest{Text: "selamat pagi", From: "id", To: "bkm"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/translate", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fragments strings.Builder
	var events []string
	var done models.TranslationResult
	scanner := bufio.NewScanner(resp.Body)
	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			events = append(events, event)
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "fragment":
				var f struct {
					Text string `json:"text"`
				}
				require.NoError(t, json.Unmarshal([]byte(payload), &f))
				fragments.WriteString(f.Text)
			case "done":
				require.NoError(t, json.Unmarshal([]byte(payload), &done))
			}
		}
	}

	require.NotEmpty(t, events)
	assert.Equal(t, "done", events[len(events)-1])
	assert.NotContains(t, events, "error")
	assert.Equal(t, "[Bakumpai] selamat pagi", fragments.String())
	assert.Equal(t, "[Bakumpai] selamat pagi", done.Text)
}
