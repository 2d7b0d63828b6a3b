package sentence

import (
	"errors"
	"fmt"
	"strings"
)

// FuriganaSegment is a chunk of text with an optional hiragana reading.
// Segments without a reading render as plain text.
type FuriganaSegment struct {
	Text    string `json:"text"`
	Reading string `json:"reading,omitempty"`
}

// Sentence is the source-agnostic content unit shown on a card.
type Sentence struct {
	Text           string            `json:"sentence"`
	Reading        string            `json:"reading,omitempty"`
	Casual         string            `json:"casual,omitempty"`
	Polite         string            `json:"polite,omitempty"`
	Translation    string            `json:"translation,omitempty"`
	FuriganaCasual []FuriganaSegment `json:"furiganaCasual,omitempty"`
	FuriganaPolite []FuriganaSegment `json:"furiganaPolite,omitempty"`
	Level          Level             `json:"level,omitempty"`
}

// CasualText returns the casual form, falling back to the bare sentence.
func (s Sentence) CasualText() string {
	if strings.TrimSpace(s.Casual) != "" {
		return s.Casual
	}
	return s.Text
}

// PoliteText returns the polite form, falling back to the bare sentence.
func (s Sentence) PoliteText() string {
	if strings.TrimSpace(s.Polite) != "" {
		return s.Polite
	}
	return s.Text
}

// FormText returns the text for the given display form.
func (s Sentence) FormText(f Form) string {
	if f == FormPolite {
		return s.PoliteText()
	}
	return s.CasualText()
}

// Furigana returns the segments for the given form, or nil.
func (s Sentence) Furigana(f Form) []FuriganaSegment {
	if f == FormPolite {
		return s.FuriganaPolite
	}
	return s.FuriganaCasual
}

// ErrEmptySentence is returned by Validate when the primary text is blank.
var ErrEmptySentence = errors.New("sentence text is empty")

// Validate checks a record received from an external source. It trims
// whitespace and drops furigana segments with empty text.
func (s *Sentence) Validate() error {
	s.Text = strings.TrimSpace(s.Text)
	if s.Text == "" {
		return ErrEmptySentence
	}
	s.Reading = strings.TrimSpace(s.Reading)
	s.Casual = strings.TrimSpace(s.Casual)
	s.Polite = strings.TrimSpace(s.Polite)
	s.Translation = strings.TrimSpace(s.Translation)
	s.FuriganaCasual = cleanSegments(s.FuriganaCasual)
	s.FuriganaPolite = cleanSegments(s.FuriganaPolite)
	if s.Level != "" && !s.Level.Valid() {
		return fmt.Errorf("invalid level %q", s.Level)
	}
	return nil
}

func cleanSegments(segs []FuriganaSegment) []FuriganaSegment {
	if len(segs) == 0 {
		return nil
	}
	out := segs[:0]
	for _, seg := range segs {
		if seg.Text == "" {
			continue
		}
		seg.Reading = strings.TrimSpace(seg.Reading)
		if seg.Reading == seg.Text {
			seg.Reading = ""
		}
		out = append(out, seg)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// JoinSegments reconstructs the annotated text from its segments.
func JoinSegments(segs []FuriganaSegment) string {
	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(seg.Text)
	}
	return b.String()
}
