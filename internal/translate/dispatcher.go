package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/ewriter/internal/config"
	"github.com/ziadkadry99/ewriter/internal/llm"
	"github.com/ziadkadry99/ewriter/internal/logging"
	"github.com/ziadkadry99/ewriter/internal/settings"
)

// Request is a single translation request.
type Request struct {
	Text  string          `json:"text"`
	Style *settings.Style `json:"style,omitempty"`
}

// SettingsSource supplies the current settings. Settings are read on every
// request so edits take effect without a restart.
type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// ProviderFactory builds an llm.Provider for a provider and API key.
type ProviderFactory func(p settings.Provider, apiKey string) (llm.Provider, error)

// ConfiguredFactory returns a factory that uses the endpoints, models and
// rate limit from cfg.
func ConfiguredFactory(cfg *config.Config) ProviderFactory {
	return func(p settings.Provider, apiKey string) (llm.Provider, error) {
		pc := cfg.ProviderConfigFor(config.ProviderType(p))
		return llm.NewProvider(string(p), apiKey, llm.Options{
			Model:             pc.Model,
			BaseURL:           pc.BaseURL,
			RequestsPerMinute: cfg.RequestsPerMinute,
		})
	}
}

type providerKey struct {
	provider settings.Provider
	apiKey   string
}

// Dispatcher turns text and a style into a Result with one provider call.
type Dispatcher struct {
	settings SettingsSource
	factory  ProviderFactory

	mu        sync.Mutex
	providers map[providerKey]llm.Provider
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(src SettingsSource, factory ProviderFactory) *Dispatcher {
	return &Dispatcher{
		settings:  src,
		factory:   factory,
		providers: make(map[providerKey]llm.Provider),
	}
}

// Translate never returns a Go error: every failure becomes a Failure result.
func (d *Dispatcher) Translate(ctx context.Context, req Request) Result {
	text, err := d.TranslateErr(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("translation failed")
		return ResultFromError(err)
	}
	return Success(text)
}

// TranslateErr performs the translation and returns the typed error on failure.
func (d *Dispatcher) TranslateErr(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", nil
	}

	st, err := d.settings.Load(ctx)
	if err != nil {
		return "", err
	}

	style := st.WritingStyle
	if req.Style != nil && *req.Style != "" {
		style = *req.Style
	}
	if style == "" {
		style = settings.StyleFormal
	}

	if !st.APIProvider.Valid() {
		st.APIProvider = settings.ProviderGemini
	}
	provider := st.APIProvider

	apiKey := strings.TrimSpace(st.APIKey())
	if apiKey == "" {
		return "", &ConfigurationError{Provider: provider.DisplayName()}
	}

	p, err := d.provider(provider, apiKey)
	if err != nil {
		return "", fmt.Errorf("creating %s provider: %w", provider, err)
	}

	start := time.Now()
	resp, err := p.Complete(ctx, llm.CompletionRequest{Messages: messagesFor(provider, req.Text, style)})
	if err != nil {
		return "", err
	}

	logging.FromContext(ctx).Debug().
		Str("provider", p.Name()).
		Str("style", string(style)).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Dur("took", time.Since(start)).
		Msg("translation complete")

	return strings.TrimSpace(resp.Content), nil
}

func (d *Dispatcher) provider(p settings.Provider, apiKey string) (llm.Provider, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := providerKey{provider: p, apiKey: apiKey}
	if cached, ok := d.providers[k]; ok {
		return cached, nil
	}
	created, err := d.factory(p, apiKey)
	if err != nil {
		return nil, err
	}
	d.providers[k] = created
	return created, nil
}

// messagesFor shapes the prompt per provider: chat providers get a system
// instruction plus the raw text, Gemini gets the single combined prompt.
func messagesFor(p settings.Provider, text string, style settings.Style) []llm.Message {
	if p == settings.ProviderOpenAI {
		return []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt(style)},
			{Role: llm.RoleUser, Content: text},
		}
	}
	return []llm.Message{{Role: llm.RoleUser, Content: BuildPrompt(text, style)}}
}
