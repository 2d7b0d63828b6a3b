package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// GoogleConfig holds Cloud Text-to-Speech settings.
type GoogleConfig struct {
	// CredentialsFile is a service-account JSON path. Empty falls back
	// to application default credentials.
	CredentialsFile string
	Voice           string
	TempDir         string
}

// GoogleSynthesizer renders speech with Google Cloud Text-to-Speech.
type GoogleSynthesizer struct {
	client     *texttospeech.Client
	synthesize func(context.Context, *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)
	voice      string
	dir        string
}

// NewGoogleSynthesizer dials the Text-to-Speech API.
func NewGoogleSynthesizer(ctx context.Context, cfg GoogleConfig) (*GoogleSynthesizer, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google text-to-speech client: %w", err)
	}
	g := &GoogleSynthesizer{client: client, voice: cfg.Voice, dir: cfg.TempDir}
	g.synthesize = func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return client.SynthesizeSpeech(ctx, req)
	}
	return g, nil
}

// Synthesize requests ja-JP MP3 audio with speed as the speaking rate.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, speed float64) (*Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text is empty")
	}
	resp, err := g.synthesize(ctx, g.request(text, speed))
	if err != nil {
		return nil, fmt.Errorf("google speech: %w", err)
	}
	return NewClip(g.dir, resp.GetAudioContent())
}

func (g *GoogleSynthesizer) request(text string, speed float64) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "ja-JP",
			Name:         g.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  NormalizeSpeed(speed),
		},
	}
}

// Close releases the underlying gRPC connection.
func (g *GoogleSynthesizer) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
