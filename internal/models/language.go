// Package models defines data structures used throughout the translation service.
package models

import (
	"encoding/json"
	"strings"

	contextutils "borneo/internal/utils"
)

// Language is one of the supported regional languages
type Language string

const (
	// Indonesian is the national language
	Indonesian Language = "Indonesian"
	// Bakumpai is spoken along the Barito river
	Bakumpai Language = "Bakumpai"
	// Ngaju is the Dayak Ngaju language of Central Kalimantan
	Ngaju Language = "Ngaju"
)

// Languages lists the closed language catalog in display order
var Languages = []Language{Indonesian, Bakumpai, Ngaju}

var languageCodes = map[Language]string{
	Indonesian: "id",
	Bakumpai:   "bkm",
	Ngaju:      "nij",
}

// LanguageInfo is the catalog entry served to clients
type LanguageInfo struct {
	Name Language `json:"name"`
	Code string   `json:"code"`
}

// Catalog returns the language catalog
func Catalog() []LanguageInfo {
	out := make([]LanguageInfo, 0, len(Languages))
	for _, l := range Languages {
		out = append(out, LanguageInfo{Name: l, Code: languageCodes[l]})
	}
	return out
}

// ParseLanguage accepts a language name or its ISO 639 code, case-insensitively
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	for _, l := range Languages {
		if strings.EqualFold(s, string(l)) || strings.EqualFold(s, languageCodes[l]) {
			return l, nil
		}
	}
	return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported language %q", s)
}

// Valid reports whether l is part of the catalog
func (l Language) Valid() bool {
	_, ok := languageCodes[l]
	return ok
}

// Code returns the ISO 639 code
func (l Language) Code() string {
	return languageCodes[l]
}

// Other returns the first catalog language different from l
func (l Language) Other() Language {
	for _, candidate := range Languages {
		if candidate != l {
			return candidate
		}
	}
	return l
}

// UnmarshalJSON accepts names and codes
func (l *Language) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLanguage(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// PairKey is the dictionary namespace for a language pair, "{from}-{to}"
func PairKey(from, to Language) string {
	return string(from) + "-" + string(to)
}

// Normalize is the dictionary key transform: trim then lowercase
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// ResolvePair keeps from and to distinct. When they collide the side that did not
// change is reassigned. changedFrom tells which side the caller just set.
func ResolvePair(from, to Language, changedFrom bool) (Language, Language) {
	if from != to {
		return from, to
	}
	if changedFrom {
		return from, from.Other()
	}
	return to.Other(), to
}
