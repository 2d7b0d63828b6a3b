package furigana

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

// IPA feature indexes.
const (
	featPOS      = 0
	featSubPOS   = 1
	featBaseForm = 6
	featReading  = 7
)

// Analyzer produces furigana segments and dictionary forms using kagome.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer loads the IPA dictionary. This takes a moment and the
// result should be shared.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Annotate splits text into segments. Chunks containing kanji carry a
// hiragana reading; okurigana and kana chunks are plain.
func (a *Analyzer) Annotate(text string) []sentence.FuriganaSegment {
	var segs []sentence.FuriganaSegment
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		reading := ""
		if f := tok.Features(); len(f) > featReading && f[featReading] != "*" {
			reading = ToHiragana(f[featReading])
		}
		segs = append(segs, split(tok.Surface, reading)...)
	}
	return merge(segs)
}

// AnnotateSentence fills in missing furigana for both forms of s.
func (a *Analyzer) AnnotateSentence(s sentence.Sentence) sentence.Sentence {
	if len(s.FuriganaCasual) == 0 {
		s.FuriganaCasual = a.Annotate(s.CasualText())
	}
	if len(s.FuriganaPolite) == 0 {
		s.FuriganaPolite = a.Annotate(s.PoliteText())
	}
	if s.Reading == "" {
		s.Reading = a.Reading(s.Text)
	}
	return s
}

// Reading returns the full hiragana reading of text.
func (a *Analyzer) Reading(text string) string {
	var b strings.Builder
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		if f := tok.Features(); len(f) > featReading && f[featReading] != "*" {
			b.WriteString(ToHiragana(f[featReading]))
			continue
		}
		b.WriteString(tok.Surface)
	}
	return b.String()
}

// Word is a dictionary-form content word found in a text.
type Word struct {
	Base    string
	Reading string
}

// ContentWords returns distinct nouns, verbs and adjectives in text,
// in order of first appearance, as dictionary forms.
func (a *Analyzer) ContentWords(text string) []Word {
	seen := make(map[string]bool)
	var out []Word
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		f := tok.Features()
		if len(f) <= featBaseForm || !isContent(f) {
			continue
		}
		base := f[featBaseForm]
		if base == "*" {
			base = tok.Surface
		}
		if !HasKanji(base) || seen[base] {
			continue
		}
		seen[base] = true
		w := Word{Base: base}
		if len(f) > featReading && f[featReading] != "*" && base == tok.Surface {
			w.Reading = ToHiragana(f[featReading])
		}
		out = append(out, w)
	}
	return out
}

func isContent(f []string) bool {
	switch f[featPOS] {
	case "名詞":
		switch f[featSubPOS] {
		case "一般", "サ変接続", "固有名詞", "形容動詞語幹":
			return true
		}
	case "動詞", "形容詞":
		return f[featSubPOS] == "自立"
	}
	return false
}

// split aligns a surface form with its reading, peeling kana that the
// surface shares with the reading at either end.
func split(surface, reading string) []sentence.FuriganaSegment {
	if reading == "" || !HasKanji(surface) {
		return []sentence.FuriganaSegment{{Text: surface}}
	}
	s := []rune(surface)
	r := []rune(reading)

	pre := 0
	for pre < len(s) && pre < len(r) && !isKanji(s[pre]) && ToHiragana(string(s[pre])) == string(r[pre]) {
		pre++
	}
	suf := 0
	for suf < len(s)-pre && suf < len(r)-pre {
		sc, rc := s[len(s)-1-suf], r[len(r)-1-suf]
		if isKanji(sc) || ToHiragana(string(sc)) != string(rc) {
			break
		}
		suf++
	}

	var out []sentence.FuriganaSegment
	if pre > 0 {
		out = append(out, sentence.FuriganaSegment{Text: string(s[:pre])})
	}
	out = append(out, sentence.FuriganaSegment{
		Text:    string(s[pre : len(s)-suf]),
		Reading: string(r[pre : len(r)-suf]),
	})
	if suf > 0 {
		out = append(out, sentence.FuriganaSegment{Text: string(s[len(s)-suf:])})
	}
	return out
}

// merge joins adjacent plain segments.
func merge(segs []sentence.FuriganaSegment) []sentence.FuriganaSegment {
	var out []sentence.FuriganaSegment
	for _, seg := range segs {
		if n := len(out); n > 0 && seg.Reading == "" && out[n-1].Reading == "" {
			out[n-1].Text += seg.Text
			continue
		}
		out = append(out, seg)
	}
	return out
}

// ToHiragana converts katakana runes to hiragana, leaving others untouched.
func ToHiragana(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'ァ' && r <= 'ヶ' {
			r -= 0x60
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasKanji reports whether s contains at least one Han character.
func HasKanji(s string) bool {
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if isKanji(r) {
			return true
		}
		s = s[size:]
	}
	return false
}

func isKanji(r rune) bool {
	return unicode.Is(unicode.Han, r) || r == '々'
}
