package scoring

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperConfig configures the OpenAI transcription client.
type WhisperConfig struct {
	APIKey  string
	BaseURL string // optional override, used in tests
}

// WhisperTranscriber transcribes Japanese audio with whisper-1.
type WhisperTranscriber struct {
	client *openai.Client
}

// NewWhisperTranscriber creates a transcriber for the given key.
func NewWhisperTranscriber(cfg WhisperConfig) *WhisperTranscriber {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &WhisperTranscriber{client: openai.NewClientWithConfig(config)}
}

// Transcribe uploads the file at audioPath and returns the text.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Language: "ja",
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	return resp.Text, nil
}
