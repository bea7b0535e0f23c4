package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is the full process configuration. It is built once at startup and
// passed explicitly to every component that needs it.
type Config struct {
	LogLevel      slog.Level
	Port          string
	AllowedOrigin string
	ParamPrefix   string

	AI      AIConfig
	Webhook WebhookConfig
}

// AIConfig configures the upstream model provider.
type AIConfig struct {
	Provider         string
	APIKey           string
	Model            string
	FallbackModel    string
	FallbackEnabled  bool
	BaseURL          string
	Timeout          time.Duration
	Temperature      *float64
	DefaultMaxTokens int
}

// WebhookConfig configures consultation delivery. An empty URL disables it.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	Source  string
}

var providerDefaults = map[string]struct {
	model, fallback, baseURL, keyEnv string
}{
	ProviderAnthropic: {
		model:    "claude-sonnet-4-20250514",
		fallback: "claude-3-5-sonnet-20241022",
		baseURL:  "https://api.anthropic.com",
		keyEnv:   "ANTHROPIC_API_KEY",
	},
	ProviderOpenAI: {
		model:    "gpt-4o-mini",
		fallback: "gpt-4o",
		baseURL:  "https://api.openai.com/v1",
		keyEnv:   "OPENAI_API_KEY",
	},
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("AI_PROVIDER", ProviderAnthropic)
	v.SetDefault("AI_FALLBACK_ENABLED", true)
	v.SetDefault("AI_TIMEOUT", "25s")
	v.SetDefault("DEFAULT_MAX_TOKENS", 200)
	v.SetDefault("WEBHOOK_TIMEOUT", "10s")
	v.SetDefault("ASSESSMENT_SOURCE", "JAX AI Assessment")
	v.SetDefault("ALLOWED_ORIGIN", "*")
	v.SetDefault("PORT", "8888")
	v.SetDefault("LOG_LEVEL", "info")
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("AI_PROVIDER")))
	defaults, ok := providerDefaults[provider]
	if !ok {
		return nil, fmt.Errorf("config: unsupported AI_PROVIDER %q", provider)
	}

	aiTimeout, err := parseDuration(v, "AI_TIMEOUT")
	if err != nil {
		return nil, err
	}
	webhookTimeout, err := parseDuration(v, "WEBHOOK_TIMEOUT")
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}

	maxTokens := v.GetInt("DEFAULT_MAX_TOKENS")
	if maxTokens <= 0 {
		return nil, fmt.Errorf("config: DEFAULT_MAX_TOKENS must be positive, got %d", maxTokens)
	}

	var temperature *float64
	if v.IsSet("AI_TEMPERATURE") && strings.TrimSpace(v.GetString("AI_TEMPERATURE")) != "" {
		t := v.GetFloat64("AI_TEMPERATURE")
		temperature = &t
	}

	return &Config{
		LogLevel:      level,
		Port:          v.GetString("PORT"),
		AllowedOrigin: v.GetString("ALLOWED_ORIGIN"),
		ParamPrefix:   strings.TrimRight(strings.TrimSpace(v.GetString("PARAM_PREFIX")), "/"),
		AI: AIConfig{
			Provider:         provider,
			APIKey:           strings.TrimSpace(v.GetString(defaults.keyEnv)),
			Model:            withDefault(v.GetString("AI_MODEL"), defaults.model),
			FallbackModel:    withDefault(v.GetString("AI_FALLBACK_MODEL"), defaults.fallback),
			FallbackEnabled:  v.GetBool("AI_FALLBACK_ENABLED"),
			BaseURL:          withDefault(v.GetString("AI_BASE_URL"), defaults.baseURL),
			Timeout:          aiTimeout,
			Temperature:      temperature,
			DefaultMaxTokens: maxTokens,
		},
		Webhook: WebhookConfig{
			URL:     strings.TrimSpace(v.GetString("ZAPIER_WEBHOOK_URL")),
			Timeout: webhookTimeout,
			Source:  v.GetString("ASSESSMENT_SOURCE"),
		},
	}, nil
}

// APIKeyParameter is the SSM parameter holding the provider credential when
// PARAM_PREFIX is configured.
func (c *Config) APIKeyParameter() string {
	if c.ParamPrefix == "" {
		return ""
	}
	return c.ParamPrefix + "/" + c.AI.Provider + "-api-key"
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}

func withDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
