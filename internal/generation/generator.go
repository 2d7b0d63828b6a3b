// Package generation turns a vocabulary list and a JLPT level into new
// practice sentences using an LLM provider.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/shadowdeck/internal/llm"
	"github.com/abhisek/shadowdeck/internal/sentence"
)

// Count bounds for a single generation request.
const (
	MinCount     = 1
	MaxCount     = 10
	DefaultCount = 5
)

// Request asks for Count sentences at Level, optionally built around
// the learner's vocabulary.
type Request struct {
	Vocabulary []string
	Count      int
	Level      sentence.Level
}

// Generator produces sentences for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]sentence.Sentence, error)
}

// Annotator fills in furigana segments the model left out.
type Annotator interface {
	AnnotateSentence(s sentence.Sentence) sentence.Sentence
}

// LLMGenerator implements Generator using an LLM provider.
type LLMGenerator struct {
	provider  llm.Provider
	config    Config
	annotator Annotator
	logger    *slog.Logger
}

// Option configures an LLMGenerator.
type Option func(*LLMGenerator)

// WithAnnotator sets the furigana fallback for sentences returned
// without segments.
func WithAnnotator(a Annotator) Option {
	return func(g *LLMGenerator) { g.annotator = a }
}

// WithLogger sets the logger used for dropped records.
func WithLogger(l *slog.Logger) Option {
	return func(g *LLMGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates an LLMGenerator. A nil provider yields a generator that
// always fails with ErrMissingCredentials.
func New(provider llm.Provider, cfg Config, opts ...Option) *LLMGenerator {
	g := &LLMGenerator{provider: provider, config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// sentenceOutput is one raw record from the model before validation.
type sentenceOutput struct {
	Sentence       string                     `json:"sentence"`
	Reading        string                     `json:"reading"`
	Casual         string                     `json:"casual"`
	Polite         string                     `json:"polite"`
	Translation    string                     `json:"translation"`
	FuriganaPolite []sentence.FuriganaSegment `json:"furiganaPolite"`
	FuriganaCasual []sentence.FuriganaSegment `json:"furiganaCasual"`
}

// Generate asks the model for sentences and validates every record.
// Invalid records are dropped; a response with no usable record is an
// error.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) ([]sentence.Sentence, error) {
	if g.provider == nil {
		return nil, ErrMissingCredentials
	}
	req = normalize(req, g.config.MaxVocabulary)

	ctx = llm.WithPurpose(ctx, llm.PurposeSentenceGen)
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      buildSystemPrompt(req),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(req)}},
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		var missing *llm.ErrMissingAPIKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
		}
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	raw, err := decodeOutput(resp)
	if err != nil {
		return nil, err
	}

	out := make([]sentence.Sentence, 0, len(raw))
	for i, r := range raw {
		s := sentence.Sentence{
			Text:           r.Sentence,
			Reading:        r.Reading,
			Casual:         r.Casual,
			Polite:         r.Polite,
			Translation:    r.Translation,
			FuriganaCasual: r.FuriganaCasual,
			FuriganaPolite: r.FuriganaPolite,
			Level:          req.Level,
		}
		if err := s.Validate(); err != nil {
			g.logger.Debug("dropping generated sentence", "index", i, "error", err)
			continue
		}
		if g.annotator != nil {
			s = g.annotator.AnnotateSentence(s)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoSentences
	}
	if len(out) > req.Count {
		out = out[:req.Count]
	}
	return out, nil
}

// decodeOutput accepts a bare JSON array or an object wrapping it under
// "sentences", optionally inside a code fence.
func decodeOutput(resp *llm.Response) ([]sentenceOutput, error) {
	body := llm.StripCodeFence(string(resp.Content))
	if strings.HasPrefix(body, "{") {
		wrapped, err := llm.Decode[struct {
			Sentences []sentenceOutput `json:"sentences"`
		}](resp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		return wrapped.Sentences, nil
	}
	items, err := llm.Decode[[]sentenceOutput](resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return items, nil
}

// normalize clamps the count, defaults the level and trims the
// vocabulary list.
func normalize(req Request, maxVocab int) Request {
	req.Count = ClampCount(req.Count)
	if !req.Level.Valid() {
		req.Level = sentence.DefaultLevel
	}

	seen := make(map[string]bool, len(req.Vocabulary))
	vocab := make([]string, 0, len(req.Vocabulary))
	for _, w := range req.Vocabulary {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		vocab = append(vocab, w)
	}
	if maxVocab > 0 && len(vocab) > maxVocab {
		vocab = vocab[:maxVocab]
	}
	req.Vocabulary = vocab
	return req
}

// ClampCount maps a requested count into [MinCount, MaxCount]. Zero
// means DefaultCount.
func ClampCount(n int) int {
	switch {
	case n == 0:
		return DefaultCount
	case n < MinCount:
		return MinCount
	case n > MaxCount:
		return MaxCount
	default:
		return n
	}
}
