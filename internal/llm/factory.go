package llm

import "fmt"

// Options configures a provider built by NewProvider.
type Options struct {
	Model             string
	BaseURL           string
	RequestsPerMinute int
}

// NewProvider creates a provider for the given provider type ("gemini" or "openai").
// A positive RequestsPerMinute wraps it in a rate limiter.
func NewProvider(providerType, apiKey string, opts Options) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is empty", providerType)
	}

	var p Provider
	switch providerType {
	case "gemini":
		p = NewGoogleProvider(apiKey, opts.Model, opts.BaseURL)
	case "openai":
		p = NewOpenAIProvider(apiKey, opts.Model, opts.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}

	if opts.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, opts.RequestsPerMinute)
	}
	return p, nil
}
