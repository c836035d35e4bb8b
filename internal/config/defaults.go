package config

import "path/filepath"

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1"
	DefaultGeminiModel   = "gemini-1.5-pro"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-3.5-turbo"
	DefaultShortcut      = "Ctrl+Shift+E"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:    "127.0.0.1:7878",
		DispatcherURL: "ws://127.0.0.1:7878/ws",
		DataDir:       ".ewriter",
		Gemini: ProviderConfig{
			BaseURL: DefaultGeminiBaseURL,
			Model:   DefaultGeminiModel,
		},
		OpenAI: ProviderConfig{
			BaseURL: DefaultOpenAIBaseURL,
			Model:   DefaultOpenAIModel,
		},
		Shortcut:       DefaultShortcut,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "chrome-extension://*"},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SettingsDBPath is the synced settings database owned by the dispatcher.
func (c *Config) SettingsDBPath() string {
	return filepath.Join(c.DataDir, "settings.db")
}

// LocalDBPath is the device-local database owned by the panel (sidebar geometry).
func (c *Config) LocalDBPath() string {
	return filepath.Join(c.DataDir, "local.db")
}

// ProviderConfigFor returns the endpoint settings for the given provider.
func (c *Config) ProviderConfigFor(p ProviderType) ProviderConfig {
	if p == ProviderOpenAI {
		return c.OpenAI
	}
	return c.Gemini
}
