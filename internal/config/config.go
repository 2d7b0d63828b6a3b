// Package config loads shadowdeck settings from flags, SHADOWDECK_*
// environment variables, an optional YAML file and built-in defaults,
// in that order of precedence.
package config

import (
	"time"

	"github.com/abhisek/shadowdeck/internal/llm"
	"github.com/abhisek/shadowdeck/internal/queue"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/sentencecache"
	"github.com/abhisek/shadowdeck/internal/speech"
)

// Config holds all application configuration.
type Config struct {
	Level sentence.Level `mapstructure:"level" validate:"oneof=N5 N4 N3 N2 N1"`
	Speed float64        `mapstructure:"speed" validate:"gte=0.8,lte=1.2"`

	// DB is the SQLite path. Empty means store.DefaultDBPath.
	DB string `mapstructure:"db"`

	// OpenAIAPIKey is used for speech synthesis and transcription.
	OpenAIAPIKey string `mapstructure:"openai_api_key"`

	Queue    queue.Config   `mapstructure:"queue"`
	Cache    CacheConfig    `mapstructure:"cache"`
	TTS      speech.Config  `mapstructure:"tts"`
	Practice PracticeConfig `mapstructure:"practice"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      llm.Config     `mapstructure:"llm"`
}

// CacheConfig controls the generated-sentence cache.
type CacheConfig struct {
	Capacity int `mapstructure:"capacity" validate:"min=1,max=1000"`

	// StaticRatio is the share of each batch drawn from the static pool
	// when vocabulary is present.
	StaticRatio float64 `mapstructure:"static_ratio" validate:"gte=0,lte=1"`
}

// PracticeConfig controls microphone capture.
type PracticeConfig struct {
	Recorder   string `mapstructure:"recorder" validate:"oneof=auto arecord sox"`
	MaxSeconds int    `mapstructure:"max_seconds" validate:"min=1,max=60"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// File is the log destination. Empty means the command's default
	// sink (a file under the data dir for the TUI, stderr for serve).
	File string `mapstructure:"file"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Level: sentence.DefaultLevel,
		Speed: speech.DefaultSpeed,
		Queue: queue.DefaultConfig(),
		Cache: CacheConfig{
			Capacity:    sentencecache.DefaultCapacity,
			StaticRatio: 0.7,
		},
		TTS: speech.DefaultConfig(),
		Practice: PracticeConfig{
			Recorder:   "auto",
			MaxSeconds: 10,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		LLM: llm.DefaultConfig(),
	}
}

// SpeechKey returns the OpenAI key for speech features, falling back to
// the LLM's OpenAI key.
func (c Config) SpeechKey() string {
	if c.OpenAIAPIKey != "" {
		return c.OpenAIAPIKey
	}
	return c.LLM.OpenAI.APIKey
}
