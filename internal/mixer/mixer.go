// Package mixer blends bundled and generated sentences into the batches
// the card queue builds from.
package mixer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/abhisek/shadowdeck/internal/generation"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/sentencecache"
	"github.com/abhisek/shadowdeck/internal/task"
)

// DefaultStaticRatio is the share of each batch drawn from the static pool.
const DefaultStaticRatio = 0.7

// StaticSource reads the bundled pool in a fresh random order.
type StaticSource interface {
	Read(level sentence.Level) []sentence.Sentence
}

// CacheSource is the generated sentence cache.
type CacheSource interface {
	FetchLeastRecentlyUsed(ctx context.Context, level sentence.Level, count int) ([]sentencecache.Entry, error)
	AddGenerated(ctx context.Context, level sentence.Level, sentences []sentence.Sentence)
}

// VocabularySource lists the learner's words. A non-empty list enables
// generated content.
type VocabularySource interface {
	Words(ctx context.Context) ([]string, error)
}

// Submitter accepts fire-and-forget work.
type Submitter interface {
	Go(t task.Task)
}

// Mixer implements the static/generated blend.
type Mixer struct {
	static    StaticSource
	cache     CacheSource
	vocab     VocabularySource
	generator generation.Generator
	tasks     Submitter

	staticRatio float64
	logger      *slog.Logger
}

// Option configures a Mixer.
type Option func(*Mixer)

// WithStaticRatio overrides DefaultStaticRatio. Values outside [0,1]
// are ignored.
func WithStaticRatio(r float64) Option {
	return func(m *Mixer) {
		if r >= 0 && r <= 1 {
			m.staticRatio = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mixer) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Mixer. generator and tasks may be nil, in which case
// cache shortfalls are never replenished.
func New(static StaticSource, cache CacheSource, vocab VocabularySource, generator generation.Generator, tasks Submitter, opts ...Option) *Mixer {
	m := &Mixer{
		static:      static,
		cache:       cache,
		vocab:       vocab,
		generator:   generator,
		tasks:       tasks,
		staticRatio: DefaultStaticRatio,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Split returns how many of count slots go to static and generated
// content.
func (m *Mixer) Split(count int) (static, generated int) {
	static = int(math.Floor(float64(count) * m.staticRatio))
	return static, count - static
}

// FetchBatch returns up to count sentences for level. Without vocabulary
// every slot is static. With vocabulary the generated share comes from
// the cache; any shortfall is filled with further static sentences and
// requested from the generator in the background for later batches.
// Empty sources yield an empty batch, not an error.
func (m *Mixer) FetchBatch(ctx context.Context, level sentence.Level, count int) ([]sentence.Sentence, error) {
	if count <= 0 {
		return nil, nil
	}
	staticCount, generatedCount := m.Split(count)

	pool := m.static.Read(level)
	batch := take(pool, 0, staticCount)
	next := len(batch)

	words, err := m.vocab.Words(ctx)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	if len(words) == 0 {
		batch = append(batch, take(pool, next, generatedCount)...)
		return finish(batch, count), nil
	}

	cached, err := m.cache.FetchLeastRecentlyUsed(ctx, level, generatedCount)
	if err != nil {
		return nil, err
	}
	for _, e := range cached {
		s := e.Sentence
		s.Level = level
		batch = append(batch, s)
	}

	if shortfall := generatedCount - len(cached); shortfall > 0 {
		m.replenish(level, words, shortfall)
		batch = append(batch, take(pool, next, shortfall)...)
	}
	return finish(batch, count), nil
}

// replenish asks the generator for n sentences in the background and
// feeds the result into the cache.
func (m *Mixer) replenish(level sentence.Level, words []string, n int) {
	if m.generator == nil || m.tasks == nil {
		m.logger.Debug("sentence cache short, no generator configured", "level", level, "shortfall", n)
		return
	}
	vocab := append([]string(nil), words...)
	m.tasks.Go(task.Task{
		Name: "generate-sentences",
		Key:  "generate:" + string(level),
		Run: func(ctx context.Context) error {
			out, err := m.generator.Generate(ctx, generation.Request{
				Vocabulary: vocab,
				Count:      n,
				Level:      level,
			})
			if err != nil {
				return fmt.Errorf("generate %d sentences for %s: %w", n, level, err)
			}
			m.cache.AddGenerated(ctx, level, out)
			m.logger.Debug("sentence cache replenished", "level", level, "requested", n, "received", len(out))
			return nil
		},
	})
}

func take(pool []sentence.Sentence, from, n int) []sentence.Sentence {
	if from >= len(pool) || n <= 0 {
		return nil
	}
	end := min(from+n, len(pool))
	return append([]sentence.Sentence(nil), pool[from:end]...)
}

func finish(batch []sentence.Sentence, count int) []sentence.Sentence {
	rand.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	if len(batch) > count {
		batch = batch[:count]
	}
	return batch
}
