package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abhisek/shadowdeck/internal/llm"
	"github.com/abhisek/shadowdeck/internal/sentence"
)

// EnvPrefix prefixes every environment variable viper reads.
const EnvPrefix = "SHADOWDECK"

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. When empty, config.yaml in Dir()
	// is used if present.
	File string

	// Flags are bound to their config keys when set on the command line.
	Flags *pflag.FlagSet

	// EnvFiles are loaded into the process environment before anything
	// else. Missing files are ignored. Defaults to ".env".
	EnvFiles []string
}

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"db":        "db",
	"level":     "level",
	"log-level": "log.level",
	"addr":      "server.addr",
	"speed":     "speed",
}

// Load reads, merges and validates configuration.
func Load(opts Options) (*Config, error) {
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, opts.File); err != nil {
		return nil, err
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		levelHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyKeyFallbacks(&cfg, os.Getenv)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Dir returns the config directory: $XDG_CONFIG_HOME/shadowdeck or
// ~/.config/shadowdeck.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "shadowdeck"), nil
}

func loadEnvFiles(files []string) error {
	if files == nil {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func readConfigFile(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	dir, err := Dir()
	if err != nil {
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can see it during
// Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("level", string(d.Level))
	v.SetDefault("speed", d.Speed)
	v.SetDefault("db", d.DB)
	v.SetDefault("openai_api_key", d.OpenAIAPIKey)

	v.SetDefault("queue.target_size", d.Queue.TargetSize)
	v.SetDefault("queue.refill_threshold", d.Queue.RefillThreshold)
	v.SetDefault("queue.load_timeout", d.Queue.LoadTimeout)
	v.SetDefault("queue.build_concurrency", d.Queue.BuildConcurrency)

	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.static_ratio", d.Cache.StaticRatio)

	v.SetDefault("tts.backend", d.TTS.Backend)
	v.SetDefault("tts.model", d.TTS.Model)
	v.SetDefault("tts.voice", d.TTS.Voice)
	v.SetDefault("tts.instructions", d.TTS.Instructions)
	v.SetDefault("tts.google_credentials_file", d.TTS.GoogleCredentialsFile)
	v.SetDefault("tts.google_voice", d.TTS.GoogleVoice)
	v.SetDefault("tts.temp_dir", d.TTS.TempDir)

	v.SetDefault("practice.recorder", d.Practice.Recorder)
	v.SetDefault("practice.max_seconds", d.Practice.MaxSeconds)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.openai.api_key", d.LLM.OpenAI.APIKey)
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", d.LLM.OpenAI.BaseURL)
	v.SetDefault("llm.anthropic.api_key", d.LLM.Anthropic.APIKey)
	v.SetDefault("llm.anthropic.model", d.LLM.Anthropic.Model)
	v.SetDefault("llm.gemini.api_key", d.LLM.Gemini.APIKey)
	v.SetDefault("llm.gemini.model", d.LLM.Gemini.Model)
	v.SetDefault("llm.openrouter.api_key", d.LLM.OpenRouter.APIKey)
	v.SetDefault("llm.openrouter.model", d.LLM.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", d.LLM.OpenRouter.BaseURL)
	v.SetDefault("llm.retry.max_attempts", d.LLM.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", d.LLM.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", d.LLM.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", d.LLM.Retry.Multiplier)
}

var levelType = reflect.TypeOf(sentence.Level(""))

// levelHook accepts lower-case levels ("n4").
func levelHook(from, to reflect.Type, data any) (any, error) {
	if to != levelType || from.Kind() != reflect.String {
		return data, nil
	}
	return strings.ToUpper(strings.TrimSpace(reflect.ValueOf(data).String())), nil
}

// applyKeyFallbacks fills API keys from the vendor variables the rest
// of the ecosystem uses (OPENAI_API_KEY and friends) when no
// SHADOWDECK_* key was given.
func applyKeyFallbacks(cfg *Config, getenv func(string) string) {
	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.OpenAI.APIKey == "" {
		cfg.LLM.OpenAI.APIKey = cfg.OpenAIAPIKey
	}
	if cfg.LLM.Configured() {
		return
	}
	if found, ok := llm.DiscoverConfig(); ok {
		cfg.LLM.Provider = found.Provider
		cfg.LLM.OpenAI.APIKey = found.OpenAI.APIKey
		cfg.LLM.Anthropic.APIKey = found.Anthropic.APIKey
		cfg.LLM.Gemini.APIKey = found.Gemini.APIKey
		cfg.LLM.OpenRouter.APIKey = found.OpenRouter.APIKey
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports them in config-key terms.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, fmt.Sprintf("%s (got %v)", msg, fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
