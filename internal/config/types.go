package config

// ProviderType identifies a remote translation provider.
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

// Config is the top-level ewriter service configuration, corresponding to .ewriter.yml.
// User-facing extension settings (provider choice, API keys, style) are not
// part of it; they live in the settings store.
type Config struct {
	ListenAddr        string         `yaml:"listen_addr" koanf:"listen_addr"`
	DispatcherURL     string         `yaml:"dispatcher_url" koanf:"dispatcher_url"`
	DataDir           string         `yaml:"data_dir" koanf:"data_dir"`
	Gemini            ProviderConfig `yaml:"gemini" koanf:"gemini"`
	OpenAI            ProviderConfig `yaml:"openai" koanf:"openai"`
	RequestsPerMinute int            `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	Shortcut          string         `yaml:"shortcut" koanf:"shortcut"`
	AllowedOrigins    []string       `yaml:"allowed_origins" koanf:"allowed_origins"`
	Log               LogConfig      `yaml:"log" koanf:"log"`
}

// ProviderConfig holds endpoint settings for one provider.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url" koanf:"base_url"`
	Model   string `yaml:"model" koanf:"model"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
