package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration. Field tags match the
// "llm" section of the config file.
type Config struct {
	// Provider is one of "openai", "anthropic", "gemini", "openrouter", "mock".
	Provider string `mapstructure:"provider"`

	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Retry      RetryConfig      `mapstructure:"retry"`

	// Timeout bounds a single request including retries.
	Timeout time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// DefaultConfig returns the defaults. Sentence generation was tuned on
// gpt-4o-mini, so OpenAI is the default provider.
func DefaultConfig() Config {
	return Config{
		Provider:   "openai",
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "openai/gpt-4o-mini"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv overlays SHADOWDECK_* variables on the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv(os.Getenv)
	return cfg
}

// ApplyEnv overlays SHADOWDECK_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Provider, "SHADOWDECK_LLM_PROVIDER")
	set(&c.OpenAI.APIKey, "SHADOWDECK_OPENAI_API_KEY")
	set(&c.OpenAI.Model, "SHADOWDECK_OPENAI_MODEL")
	set(&c.OpenAI.BaseURL, "SHADOWDECK_OPENAI_BASE_URL")
	set(&c.Anthropic.APIKey, "SHADOWDECK_ANTHROPIC_API_KEY")
	set(&c.Anthropic.Model, "SHADOWDECK_ANTHROPIC_MODEL")
	set(&c.Gemini.APIKey, "SHADOWDECK_GEMINI_API_KEY")
	set(&c.Gemini.Model, "SHADOWDECK_GEMINI_MODEL")
	set(&c.OpenRouter.APIKey, "SHADOWDECK_OPENROUTER_API_KEY")
	set(&c.OpenRouter.Model, "SHADOWDECK_OPENROUTER_MODEL")
}

// DiscoverConfig probes the standard vendor key variables (OpenAI,
// Gemini, Anthropic, OpenRouter) and selects the first provider found.
func DiscoverConfig() (Config, bool) {
	return discover(DefaultConfig(), os.Getenv)
}

func discover(cfg Config, getenv func(string) string) (Config, bool) {
	if k := getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}
	return cfg, false
}

// Configured reports whether the selected provider has a key.
func (c Config) Configured() bool {
	return c.Validate() == nil
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "openai":
		key = c.OpenAI.APIKey
	case "anthropic":
		key = c.Anthropic.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	case "openrouter":
		key = c.OpenRouter.APIKey
	case "mock":
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return &ErrMissingAPIKey{Provider: c.Provider}
	}
	return nil
}

// Model returns the configured model for the selected provider.
func (c Config) Model() string {
	switch c.Provider {
	case "openai":
		return c.OpenAI.Model
	case "anthropic":
		return c.Anthropic.Model
	case "gemini":
		return c.Gemini.Model
	case "openrouter":
		return c.OpenRouter.Model
	}
	return c.Provider
}
