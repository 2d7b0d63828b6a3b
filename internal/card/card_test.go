package card

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/speech"
)

type synthFunc func(ctx context.Context, text string, speed float64) (*speech.Clip, error)

func (f synthFunc) Synthesize(ctx context.Context, text string, speed float64) (*speech.Clip, error) {
	return f(ctx, text, speed)
}

func sample() sentence.Sentence {
	return sentence.Sentence{
		Text:   "水を飲みます。",
		Casual: "水を飲む。",
		Polite: "水を飲みます。",
		FuriganaCasual: []sentence.FuriganaSegment{
			{Text: "水", Reading: "みず"}, {Text: "を"}, {Text: "飲", Reading: "の"}, {Text: "む。"},
		},
		Level: sentence.N5,
	}
}

func TestBuild_BothForms(t *testing.T) {
	dir := t.TempDir()
	var (
		mu     sync.Mutex
		texts  []string
		speeds []float64
	)
	synth := synthFunc(func(_ context.Context, text string, speed float64) (*speech.Clip, error) {
		mu.Lock()
		texts = append(texts, text)
		speeds = append(speeds, speed)
		mu.Unlock()
		return speech.NewClip(dir, []byte(text))
	})

	c := NewBuilder(synth, nil).Build(context.Background(), sample(), 1.5, sentence.N4)
	defer c.Release()

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, sentence.N4, c.Level)
	assert.Equal(t, sentence.FormCasual, c.DisplayForm)
	require.NotNil(t, c.CasualAudio)
	require.NotNil(t, c.PoliteAudio)
	assert.ElementsMatch(t, []string{"水を飲む。", "水を飲みます。"}, texts)
	assert.Equal(t, []float64{1.2, 1.2}, speeds, "speed normalized before synthesis")
	assert.Equal(t, "水を飲む。", c.Text())
	assert.Len(t, c.Furigana(), 4)
	assert.Same(t, c.CasualAudio, c.CurrentAudio())
}

func TestBuild_SynthesisFailures(t *testing.T) {
	dir := t.TempDir()
	failPolite := synthFunc(func(_ context.Context, text string, _ float64) (*speech.Clip, error) {
		if text == "水を飲みます。" {
			return nil, errors.New("tts failed")
		}
		return speech.NewClip(dir, []byte(text))
	})

	c := NewBuilder(failPolite, nil).Build(context.Background(), sample(), 1, "")
	defer c.Release()
	assert.NotNil(t, c.CasualAudio)
	assert.Nil(t, c.PoliteAudio)
	assert.Equal(t, sentence.N5, c.Level, "level falls back to the sentence's own")

	both := NewBuilder(speech.None{}, nil).Build(context.Background(), sample(), 1, sentence.N5)
	assert.Nil(t, both.CasualAudio)
	assert.Nil(t, both.PoliteAudio)
	assert.NotEmpty(t, both.ID)
	both.Release()

	noSynth := NewBuilder(nil, nil).Build(context.Background(), sentence.Sentence{Text: "猫"}, 1, sentence.N5)
	assert.Nil(t, noSynth.CurrentAudio())
}

func TestBuild_FormFallback(t *testing.T) {
	var got []string
	var mu sync.Mutex
	synth := synthFunc(func(_ context.Context, text string, _ float64) (*speech.Clip, error) {
		mu.Lock()
		got = append(got, text)
		mu.Unlock()
		return nil, speech.ErrNoSynthesizer
	})
	NewBuilder(synth, nil).Build(context.Background(), sentence.Sentence{Text: "本を読む。"}, 1, sentence.N5)
	assert.Equal(t, []string{"本を読む。", "本を読む。"}, got)
}

func TestBuild_Concurrent(t *testing.T) {
	var inFlight, peak atomic.Int32
	gate := make(chan struct{})
	synth := synthFunc(func(context.Context, string, float64) (*speech.Clip, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if n == 2 {
			close(gate)
		}
		select {
		case <-gate:
		case <-time.After(time.Second):
		}
		inFlight.Add(-1)
		return nil, errors.New("offline")
	})

	NewBuilder(synth, nil).Build(context.Background(), sample(), 1, sentence.N5)
	assert.EqualValues(t, 2, peak.Load(), "both forms are requested concurrently")
}

func TestBuildWithID_AndRelease(t *testing.T) {
	dir := t.TempDir()
	synth := synthFunc(func(_ context.Context, text string, _ float64) (*speech.Clip, error) {
		return speech.NewClip(dir, []byte(text))
	})
	c := NewBuilder(synth, nil).BuildWithID(context.Background(), "saved-1", sample(), 1, sentence.N5)
	assert.Equal(t, "saved-1", c.ID)

	c.DisplayForm = sentence.FormPolite
	assert.Equal(t, "水を飲みます。", c.Text())
	assert.Same(t, c.PoliteAudio, c.CurrentAudio())

	c.Release()
	c.Release()
	assert.True(t, c.CasualAudio.Released())
	assert.True(t, c.PoliteAudio.Released())

	var nilCard *Card
	nilCard.Release()
}
