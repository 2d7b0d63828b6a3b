// Package speech synthesizes Japanese audio for card sentences.
package speech

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Synthesizer turns text into an audio clip. Implementations make a
// single attempt; callers decide what a failure means.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, speed float64) (*Clip, error)
}

// Playback speed bounds.
const (
	MinSpeed     = 0.8
	MaxSpeed     = 1.2
	DefaultSpeed = 1.0
)

// NormalizeSpeed rounds to one decimal and clamps to [MinSpeed,
// MaxSpeed]. Zero or NaN means DefaultSpeed.
func NormalizeSpeed(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return DefaultSpeed
	}
	v = math.Round(v*10) / 10
	return math.Min(MaxSpeed, math.Max(MinSpeed, v))
}

// ErrNoSynthesizer is returned by None.
var ErrNoSynthesizer = errors.New("speech synthesis is disabled")

// None is a Synthesizer that always fails, producing cards without audio.
type None struct{}

func (None) Synthesize(context.Context, string, float64) (*Clip, error) {
	return nil, ErrNoSynthesizer
}

// Config selects and configures a backend.
type Config struct {
	Backend string `mapstructure:"backend" validate:"oneof=openai google none"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`

	// Instructions steer gpt-4o-mini-tts delivery.
	Instructions string `mapstructure:"instructions"`

	GoogleCredentialsFile string `mapstructure:"google_credentials_file"`
	GoogleVoice           string `mapstructure:"google_voice"`

	// TempDir holds clip files; empty means os.TempDir.
	TempDir string `mapstructure:"temp_dir"`
}

// DefaultConfig returns the OpenAI backend with a Japanese voice setup.
func DefaultConfig() Config {
	return Config{
		Backend:      "openai",
		Model:        "gpt-4o-mini-tts",
		Voice:        "nova",
		Instructions: DefaultInstructions,
		GoogleVoice:  "ja-JP-Neural2-B",
	}
}

// DefaultInstructions keeps the TTS model from translating or
// paraphrasing the sentence.
const DefaultInstructions = "Read the following text in natural Japanese. Do not translate. Pronounce exactly as written, as a native Japanese speaker would."

// New builds the configured backend. openAIKey is required for the
// openai backend.
func New(ctx context.Context, cfg Config, openAIKey string) (Synthesizer, error) {
	switch cfg.Backend {
	case "", "openai":
		if openAIKey == "" {
			return nil, fmt.Errorf("openai speech backend: %w", ErrMissingKey)
		}
		return NewOpenAISynthesizer(OpenAIConfig{
			APIKey:       openAIKey,
			Model:        cfg.Model,
			Voice:        cfg.Voice,
			Instructions: cfg.Instructions,
			TempDir:      cfg.TempDir,
		}), nil
	case "google":
		return NewGoogleSynthesizer(ctx, GoogleConfig{
			CredentialsFile: cfg.GoogleCredentialsFile,
			Voice:           cfg.GoogleVoice,
			TempDir:         cfg.TempDir,
		})
	case "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown speech backend %q", cfg.Backend)
	}
}

// ErrMissingKey means the OpenAI backend has no API key.
var ErrMissingKey = errors.New("OPENAI_API_KEY is not set")
