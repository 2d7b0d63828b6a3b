// Package scoring grades a shadowing attempt: the recording is
// transcribed, then an LLM compares the transcript with the reference
// sentence and returns a score with short feedback.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/abhisek/shadowdeck/internal/llm"
)

// Defaults applied when the model omits a field.
const (
	DefaultScore    = 70
	DefaultFeedback = "Good attempt. Keep practicing!"
)

var (
	// ErrMissingReference is returned when there is no sentence to compare against.
	ErrMissingReference = errors.New("missing reference text")

	// ErrUnavailable is returned when no LLM provider is configured.
	ErrUnavailable = errors.New("scoring unavailable: API key is not configured")
)

// Result is a scored attempt.
type Result struct {
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
	Transcript string `json:"transcript"`
}

// Scorer grades the recording at audioPath against reference.
type Scorer interface {
	Score(ctx context.Context, audioPath, reference string) (Result, error)
}

// Transcriber turns a Japanese recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// FeedbackScorer implements Scorer with a Transcriber and an LLM.
type FeedbackScorer struct {
	transcriber Transcriber
	provider    llm.Provider
	logger      *slog.Logger
}

// New creates a FeedbackScorer. logger may be nil.
func New(t Transcriber, p llm.Provider, logger *slog.Logger) *FeedbackScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackScorer{transcriber: t, provider: p, logger: logger}
}

const systemPrompt = `You are a Japanese shadowing coach. The user repeated a Japanese sentence. Compare their transcription to the reference and give:
1. A score from 0 to 100 (accuracy and pronunciation quality).
2. One or two short sentences of feedback in English (what was good, what to improve).
Return ONLY valid JSON: { "score": number, "feedback": "string" }. No other text.`

var feedbackSchema = &llm.Schema{
	Name:        "practice-feedback",
	Description: "Score and feedback for a shadowing attempt",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":    map[string]any{"type": "number"},
			"feedback": map[string]any{"type": "string"},
		},
		"required":             []any{"score", "feedback"},
		"additionalProperties": false,
	},
}

type feedbackOutput struct {
	Score    *float64 `json:"score"`
	Feedback *string  `json:"feedback"`
}

// Score transcribes the recording and asks the model for feedback.
func (s *FeedbackScorer) Score(ctx context.Context, audioPath, reference string) (Result, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Result{}, ErrMissingReference
	}
	if s.transcriber == nil || s.provider == nil {
		return Result{}, ErrUnavailable
	}

	transcript, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: %w", err)
	}
	transcript = strings.TrimSpace(transcript)

	ctx = llm.WithPurpose(ctx, llm.PurposePracticeFeedback)
	resp, err := s.provider.Generate(ctx, llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Reference sentence: %s\nUser said (transcribed): %s", reference, transcript),
		}},
		Schema:      feedbackSchema,
		MaxTokens:   256,
		Temperature: 0.3,
	})
	if err != nil {
		return Result{}, fmt.Errorf("feedback: %w", err)
	}
	if resp.Text() == "" {
		return Result{}, errors.New("no feedback from model")
	}

	out, err := llm.Decode[feedbackOutput](resp)
	if err != nil {
		return Result{}, fmt.Errorf("feedback: %w", err)
	}

	res := Result{Score: DefaultScore, Feedback: DefaultFeedback, Transcript: transcript}
	if out.Score != nil {
		res.Score = ClampScore(*out.Score)
	}
	if out.Feedback != nil {
		res.Feedback = *out.Feedback
	}
	s.logger.Debug("attempt scored", "score", res.Score, "transcript_len", len(transcript))
	return res, nil
}

// ClampScore rounds v and clamps it to [0, 100].
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return DefaultScore
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
