// Package card builds playable cards: a sentence plus synthesized audio
// for its casual and polite forms.
package card

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/speech"
)

// Card is a queue-ready sentence. Either audio clip may be nil when
// synthesis failed; the card is still usable.
type Card struct {
	ID          string
	Sentence    sentence.Sentence
	Level       sentence.Level
	DisplayForm sentence.Form
	CasualAudio *speech.Clip
	PoliteAudio *speech.Clip
}

// Text returns the sentence in the current display form.
func (c *Card) Text() string {
	return c.Sentence.FormText(c.DisplayForm)
}

// Furigana returns the segments for the current display form.
func (c *Card) Furigana() []sentence.FuriganaSegment {
	return c.Sentence.Furigana(c.DisplayForm)
}

// Audio returns the clip for form, or nil.
func (c *Card) Audio(form sentence.Form) *speech.Clip {
	if form == sentence.FormPolite {
		return c.PoliteAudio
	}
	return c.CasualAudio
}

// CurrentAudio returns the clip for the display form, or nil.
func (c *Card) CurrentAudio() *speech.Clip {
	return c.Audio(c.DisplayForm)
}

// Release frees both audio clips. Safe to call repeatedly.
func (c *Card) Release() {
	if c == nil {
		return
	}
	c.CasualAudio.Release()
	c.PoliteAudio.Release()
}

// Builder turns sentences into cards.
type Builder struct {
	synth  speech.Synthesizer
	logger *slog.Logger
	newID  func() string
}

// NewBuilder creates a Builder. A nil synthesizer builds cards without
// audio.
func NewBuilder(synth speech.Synthesizer, logger *slog.Logger) *Builder {
	if synth == nil {
		synth = speech.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{synth: synth, logger: logger, newID: uuid.NewString}
}

// Build synthesizes both forms of s concurrently and returns a card with
// a fresh ID. It never fails: a form whose synthesis fails gets no clip.
func (b *Builder) Build(ctx context.Context, s sentence.Sentence, speed float64, level sentence.Level) *Card {
	return b.BuildWithID(ctx, b.newID(), s, speed, level)
}

// BuildWithID is Build with a caller-chosen ID, used to rehydrate saved
// cards.
func (b *Builder) BuildWithID(ctx context.Context, id string, s sentence.Sentence, speed float64, level sentence.Level) *Card {
	if level == "" {
		level = s.Level
	}
	speed = speech.NormalizeSpeed(speed)
	c := &Card{
		ID:          id,
		Sentence:    s,
		Level:       level,
		DisplayForm: sentence.FormCasual,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.CasualAudio = b.synthesize(ctx, id, sentence.FormCasual, s.CasualText(), speed)
	}()
	go func() {
		defer wg.Done()
		c.PoliteAudio = b.synthesize(ctx, id, sentence.FormPolite, s.PoliteText(), speed)
	}()
	wg.Wait()
	return c
}

func (b *Builder) synthesize(ctx context.Context, id string, form sentence.Form, text string, speed float64) *speech.Clip {
	clip, err := b.synth.Synthesize(ctx, text, speed)
	if err != nil {
		b.logger.Debug("audio synthesis failed", "card", id, "form", form, "error", err)
		return nil
	}
	return clip
}
