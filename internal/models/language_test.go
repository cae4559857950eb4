package models

import (
	"encoding/json"
	"testing"
	"time"

	contextutils "borneo/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected Language
	}{
		{"Indonesian", Indonesian},
		{"indonesian", Indonesian},
		{" id ", Indonesian},
		{"BKM", Bakumpai},
		{"Ngaju", Ngaju},
		{"nij", Ngaju},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLanguage(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseLanguage("Javanese")
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeInvalidInput, contextutils.GetErrorCode(err))
}

func TestLanguage_Other(t *testing.T) {
	for _, l := range Languages {
		assert.NotEqual(t, l, l.Other())
		assert.True(t, l.Other().Valid())
	}
	assert.Equal(t, Bakumpai, Indonesian.Other())
	assert.Equal(t, Indonesian, Ngaju.Other())
}

func TestResolvePair(t *testing.T) {
	from, to := ResolvePair(Indonesian, Bakumpai, true)
	assert.Equal(t, Indonesian, from)
	assert.Equal(t, Bakumpai, to)

	// from changed to equal to, so to moves
	from, to = ResolvePair(Bakumpai, Bakumpai, true)
	assert.Equal(t, Bakumpai, from)
	assert.Equal(t, Indonesian, to)

	// to changed to equal from, so from moves
	from, to = ResolvePair(Ngaju, Ngaju, false)
	assert.Equal(t, Indonesian, from)
	assert.Equal(t, Ngaju, to)
}

func TestLanguage_UnmarshalJSON(t *testing.T) {
	var req TranslationRequest
	require.NoError(t, json.Unmarshal([]byte(`{"text":"halo","from":"id","to":"Bakumpai"}`), &req))
	assert.Equal(t, Indonesian, req.From)
	assert.Equal(t, Bakumpai, req.To)

	err := json.Unmarshal([]byte(`{"text":"halo","from":"xx","to":"Bakumpai"}`), &req)
	assert.Error(t, err)
}

func TestNormalizeAndPairKey(t *testing.T) {
	assert.Equal(t, "halo", Normalize("  HaLo \n"))
	assert.Equal(t, "Indonesian-Bakumpai", PairKey(Indonesian, Bakumpai))
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 3)
	assert.Equal(t, LanguageInfo{Name: Indonesian, Code: "id"}, catalog[0])
}

func TestNewHistoryItem(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := NewHistoryItem(Indonesian, Bakumpai, "halo", "nyawi", now)
	b := NewHistoryItem(Indonesian, Bakumpai, "halo", "nyawi", now)

	assert.Contains(t, a.ID, "hist-")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, now, a.Date)
	assert.Equal(t, "nyawi", a.OutputText)
}

func TestCredential_MaskedKey(t *testing.T) {
	assert.Equal(t, "****", Credential{Key: "abc"}.MaskedKey())
	assert.Equal(t, "****wxyz", Credential{Key: "AIzaSy-wxyz"}.MaskedKey())
}
