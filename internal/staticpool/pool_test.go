package staticpool

import (
	"testing"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

type stubAnnotator struct{ calls int }

func (a *stubAnnotator) AnnotateSentence(s sentence.Sentence) sentence.Sentence {
	a.calls++
	s.Reading = "stub"
	return s
}

func TestBundledLevelsLoad(t *testing.T) {
	p := New(nil)
	if err := p.Err(); err != nil {
		t.Fatalf("bundled data: %v", err)
	}
	for _, level := range sentence.Levels {
		items := p.Read(level)
		if len(items) < 10 {
			t.Errorf("level %s has %d sentences, want at least 10", level, len(items))
		}
		for _, s := range items {
			if s.Level != level {
				t.Errorf("sentence %q tagged %s, want %s", s.Text, s.Level, level)
			}
			if s.Casual == "" || s.Polite == "" {
				t.Errorf("sentence %q missing a form", s.Text)
			}
		}
	}
}

func TestReadReturnsFullSetAsCopy(t *testing.T) {
	p := New(nil)
	a := p.Read(sentence.N5)
	if len(a) != p.Size(sentence.N5) {
		t.Fatalf("Read returned %d, Size %d", len(a), p.Size(sentence.N5))
	}
	a[0].Text = "mutated"
	for _, s := range p.Read(sentence.N5) {
		if s.Text == "mutated" {
			t.Fatal("Read must return a copy")
		}
	}
}

func TestReadReshufflesEveryCall(t *testing.T) {
	p := New(nil)
	first := p.Read(sentence.N5)
	// With 12 items the chance of 20 identical orders is negligible.
	for i := 0; i < 20; i++ {
		next := p.Read(sentence.N5)
		for j := range next {
			if next[j].Text != first[j].Text {
				return
			}
		}
	}
	t.Fatal("order never changed across 20 reads")
}

func TestReadUnknownLevelIsEmpty(t *testing.T) {
	p := FromSentences([]sentence.Sentence{{Text: "a", Level: sentence.N5}})
	if got := p.Read(sentence.N1); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
	if got := p.Read(sentence.N5); len(got) != 1 {
		t.Errorf("expected 1 item, got %d", len(got))
	}
}

func TestAnnotatorAppliedOnce(t *testing.T) {
	ann := &stubAnnotator{}
	p := New(ann)
	p.Read(sentence.N5)
	calls := ann.calls
	if calls == 0 {
		t.Fatal("annotator not called")
	}
	p.Read(sentence.N5)
	if ann.calls != calls {
		t.Errorf("annotator called again on second read")
	}
	if p.Read(sentence.N4)[0].Reading != "stub" {
		t.Error("annotation not applied")
	}
}
