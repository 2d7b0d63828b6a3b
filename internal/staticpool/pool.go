package staticpool

import (
	"embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

//go:embed data/*.json
var bundled embed.FS

// Annotator fills in missing furigana for a sentence.
type Annotator interface {
	AnnotateSentence(s sentence.Sentence) sentence.Sentence
}

// Pool is the bundled, non-generated sentence set. It is safe for
// concurrent use.
type Pool struct {
	annotator Annotator

	once   sync.Once
	levels map[sentence.Level][]sentence.Sentence
	err    error
}

// New returns a Pool over the embedded data. annotator may be nil, in
// which case sentences are served without generated furigana.
func New(annotator Annotator) *Pool {
	return &Pool{annotator: annotator}
}

// FromSentences builds a Pool from an in-memory set, grouped by each
// sentence's Level.
func FromSentences(items []sentence.Sentence) *Pool {
	p := &Pool{levels: make(map[sentence.Level][]sentence.Sentence)}
	for _, s := range items {
		p.levels[s.Level] = append(p.levels[s.Level], s)
	}
	p.once.Do(func() {})
	return p
}

// Read returns every bundled sentence for level in a fresh uniform
// shuffle. The result is a copy owned by the caller.
func (p *Pool) Read(level sentence.Level) []sentence.Sentence {
	p.once.Do(p.load)
	src := p.levels[level]
	if len(src) == 0 {
		return nil
	}
	out := make([]sentence.Sentence, len(src))
	copy(out, src)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Size returns the number of bundled sentences for level.
func (p *Pool) Size(level sentence.Level) int {
	p.once.Do(p.load)
	return len(p.levels[level])
}

// Err reports a problem decoding the bundled data, if any. Levels that
// failed to decode read as empty.
func (p *Pool) Err() error {
	p.once.Do(p.load)
	return p.err
}

func (p *Pool) load() {
	p.levels = make(map[sentence.Level][]sentence.Sentence)
	for _, level := range sentence.Levels {
		items, err := decode(level)
		if err != nil {
			p.err = err
			continue
		}
		if p.annotator != nil {
			for i := range items {
				items[i] = p.annotator.AnnotateSentence(items[i])
			}
		}
		p.levels[level] = items
	}
}

func decode(level sentence.Level) ([]sentence.Sentence, error) {
	name := "data/" + strings.ToLower(string(level)) + ".json"
	raw, err := bundled.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var items []sentence.Sentence
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	out := items[:0]
	for _, s := range items {
		s.Level = level
		if err := s.Validate(); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
