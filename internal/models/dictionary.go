package models

import "time"

// OverrideEntry maps a normalized phrase to its curated translation
type OverrideEntry struct {
	From        Language `json:"from"`
	To          Language `json:"to"`
	Source      string   `json:"source"`
	Translation string   `json:"translation"`
}

// UploadHistoryItem records one admin dictionary upload
type UploadHistoryItem struct {
	ID       string    `json:"id"`
	FileName string    `json:"fileName"`
	From     Language  `json:"from"`
	To       Language  `json:"to"`
	Count    int       `json:"count"`
	Date     time.Time `json:"date"`
}

// Service names for stored API keys
const (
	CredentialGemini = "gemini"
	CredentialGitHub = "github"
)

// CredentialServices lists the services an API key can be stored for
var CredentialServices = []string{CredentialGemini, CredentialGitHub}

// Credential is a stored API key
type Credential struct {
	Service   string    `json:"service"`
	Key       string    `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MaskedKey shows only the last four characters of the key
func (c Credential) MaskedKey() string {
	if len(c.Key) <= 4 {
		return "****"
	}
	return "****" + c.Key[len(c.Key)-4:]
}
