package settings

import (
	"fmt"
	"strings"
)

// Provider identifies the remote translation backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// DisplayName is the provider name as shown to users.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	default:
		return "Gemini"
	}
}

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderGemini || p == ProviderOpenAI
}

// Style is the English register the translation is written in.
type Style string

const (
	StyleFormal Style = "formal"
	StyleCasual Style = "casual"
)

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	return s == StyleFormal || s == StyleCasual
}

// ParseStyle parses a style name, case-insensitively.
func ParseStyle(s string) (Style, error) {
	st := Style(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid style %q: must be formal or casual", s)
	}
	return st, nil
}

// Settings store keys, synced across devices.
const (
	KeyAPIProvider  = "apiProvider"
	KeyGeminiAPIKey = "geminiApiKey"
	KeyOpenAIAPIKey = "openaiApiKey"
	KeyWritingStyle = "writingStyle"
	KeyIsEnabled    = "isEnabled"
)

var allKeys = []string{KeyAPIProvider, KeyGeminiAPIKey, KeyOpenAIAPIKey, KeyWritingStyle, KeyIsEnabled}

// Settings is the persisted extension configuration edited on the options page.
type Settings struct {
	APIProvider  Provider `json:"apiProvider"`
	GeminiAPIKey string   `json:"geminiApiKey"`
	OpenAIAPIKey string   `json:"openaiApiKey"`
	WritingStyle Style    `json:"writingStyle"`
	IsEnabled    bool     `json:"isEnabled"`
}

// Defaults returns the settings created on first read.
func Defaults() Settings {
	return Settings{
		APIProvider:  ProviderGemini,
		WritingStyle: StyleFormal,
		IsEnabled:    true,
	}
}

// APIKey returns the key configured for the selected provider.
func (s Settings) APIKey() string {
	if s.APIProvider == ProviderOpenAI {
		return s.OpenAIAPIKey
	}
	return s.GeminiAPIKey
}

// Validate applies the options page rules: known provider and style, and a
// non-empty key for the selected provider.
func (s Settings) Validate() error {
	if !s.APIProvider.Valid() {
		return fmt.Errorf("invalid apiProvider %q: must be gemini or openai", s.APIProvider)
	}
	if !s.WritingStyle.Valid() {
		return fmt.Errorf("invalid writingStyle %q: must be formal or casual", s.WritingStyle)
	}
	if strings.TrimSpace(s.APIKey()) == "" {
		return fmt.Errorf("please enter a %s API key", s.APIProvider.DisplayName())
	}
	return nil
}

// Masked returns a copy safe to show: API keys are reduced to their last four characters.
func (s Settings) Masked() Settings {
	s.GeminiAPIKey = maskKey(s.GeminiAPIKey)
	s.OpenAIAPIKey = maskKey(s.OpenAIAPIKey)
	return s
}

func maskKey(k string) string {
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
