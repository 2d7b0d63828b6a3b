package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds OpenAI TTS settings.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	Voice        string
	Instructions string
	BaseURL      string
	TempDir      string
}

// OpenAISynthesizer renders speech with the OpenAI audio API.
type OpenAISynthesizer struct {
	client       *openai.Client
	model        openai.SpeechModel
	voice        openai.SpeechVoice
	instructions string
	dir          string
}

// NewOpenAISynthesizer creates a synthesizer. Empty fields take the
// gpt-4o-mini-tts / nova defaults.
func NewOpenAISynthesizer(cfg OpenAIConfig) *OpenAISynthesizer {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	s := &OpenAISynthesizer{
		client:       openai.NewClientWithConfig(config),
		model:        openai.TTSModelGPT4oMini,
		voice:        openai.VoiceNova,
		instructions: cfg.Instructions,
		dir:          cfg.TempDir,
	}
	if cfg.Model != "" {
		s.model = openai.SpeechModel(cfg.Model)
	}
	if cfg.Voice != "" {
		s.voice = openai.SpeechVoice(cfg.Voice)
	}
	return s
}

// Synthesize requests MP3 audio for text at the normalized speed.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string, speed float64) (*Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text is empty")
	}

	req := openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          NormalizeSpeed(speed),
	}
	// tts-1 models reject instructions.
	if s.model == openai.TTSModelGPT4oMini {
		req.Instructions = s.instructions
	}

	resp, err := s.client.CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return NewClip(s.dir, data)
}
