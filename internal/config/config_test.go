package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ListenAddr != "127.0.0.1:7878" {
		t.Errorf("expected default listen_addr, got %q", cfg.ListenAddr)
	}
	if cfg.Gemini.Model != DefaultGeminiModel {
		t.Errorf("expected default gemini model %q, got %q", DefaultGeminiModel, cfg.Gemini.Model)
	}
	if cfg.OpenAI.Model != DefaultOpenAIModel {
		t.Errorf("expected default openai model %q, got %q", DefaultOpenAIModel, cfg.OpenAI.Model)
	}
	if cfg.Shortcut != DefaultShortcut {
		t.Errorf("expected default shortcut %q, got %q", DefaultShortcut, cfg.Shortcut)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ewriter.yml")

	original := DefaultConfig()
	original.ListenAddr = ":9999"
	original.Gemini.Model = "gemini-2.0-flash"
	original.RequestsPerMinute = 30
	original.AllowedOrigins = []string{"chrome-extension://abc", "chrome-extension://def", "http://localhost:3000"}
	original.Log.Format = "json"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ListenAddr != original.ListenAddr {
		t.Errorf("listen_addr: got %q, want %q", loaded.ListenAddr, original.ListenAddr)
	}
	if loaded.Gemini.Model != original.Gemini.Model {
		t.Errorf("gemini.model: got %q, want %q", loaded.Gemini.Model, original.Gemini.Model)
	}
	if loaded.RequestsPerMinute != 30 {
		t.Errorf("requests_per_minute: got %d, want 30", loaded.RequestsPerMinute)
	}
	if len(loaded.AllowedOrigins) != 3 || loaded.AllowedOrigins[0] != "chrome-extension://abc" {
		t.Errorf("allowed_origins: got %v", loaded.AllowedOrigins)
	}
	if loaded.Log.Format != "json" {
		t.Errorf("log.format: got %q, want json", loaded.Log.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Gemini.BaseURL != DefaultGeminiBaseURL {
		t.Errorf("expected default gemini base url, got %q", cfg.Gemini.BaseURL)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("EWRITER_SHORTCUT", "Alt+T")
	t.Setenv("EWRITER_OPENAI__MODEL", "gpt-4o-mini")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Shortcut != "Alt+T" {
		t.Errorf("env override failed: got %q, want %q", loaded.Shortcut, "Alt+T")
	}
	if loaded.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("nested env override failed: got %q", loaded.OpenAI.Model)
	}
}

func TestValidateValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"missing gemini model", func(c *Config) { c.Gemini.Model = "" }},
		{"missing openai base url", func(c *Config) { c.OpenAI.BaseURL = "" }},
		{"negative rpm", func(c *Config) { c.RequestsPerMinute = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDatabasePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/ew"
	if got := cfg.SettingsDBPath(); got != filepath.Join("/tmp/ew", "settings.db") {
		t.Errorf("SettingsDBPath = %q", got)
	}
	if got := cfg.LocalDBPath(); got != filepath.Join("/tmp/ew", "local.db") {
		t.Errorf("LocalDBPath = %q", got)
	}
}

func TestProviderConfigFor(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ProviderConfigFor(ProviderOpenAI); got.Model != DefaultOpenAIModel {
		t.Errorf("openai model = %q", got.Model)
	}
	if got := cfg.ProviderConfigFor(ProviderGemini); got.Model != DefaultGeminiModel {
		t.Errorf("gemini model = %q", got.Model)
	}
}
