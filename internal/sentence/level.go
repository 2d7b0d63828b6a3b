package sentence

import (
	"fmt"
	"strings"
)

// Level is a JLPT difficulty tier. It partitions both the static pool
// and the generated sentence cache.
type Level string

const (
	N5 Level = "N5"
	N4 Level = "N4"
	N3 Level = "N3"
	N2 Level = "N2"
	N1 Level = "N1"
)

// DefaultLevel is used when no level is configured or a value is unknown.
const DefaultLevel = N5

// Levels lists all tiers from beginner to advanced.
var Levels = []Level{N5, N4, N3, N2, N1}

var rubrics = map[Level]string{
	N5: "JLPT N5 (beginner): basic grammar, ~100 kanji, simple daily expressions, short sentences",
	N4: "JLPT N4 (elementary): basic grammar and ~300 kanji, everyday topics, simple compound sentences",
	N3: "JLPT N3 (intermediate): bridge level, daily life and news, moderate grammar and kanji",
	N2: "JLPT N2 (upper intermediate): most daily situations, newspapers, business Japanese, complex grammar",
	N1: "JLPT N1 (advanced): complex texts, abstract topics, full kanji use, native-level grammar",
}

// Valid reports whether l is one of the five known tiers.
func (l Level) Valid() bool {
	_, ok := rubrics[l]
	return ok
}

// Rubric returns the textual difficulty description used in generation prompts.
func (l Level) Rubric() string {
	if r, ok := rubrics[l]; ok {
		return r
	}
	return rubrics[DefaultLevel]
}

// Next returns the following tier, wrapping from N1 back to N5.
func (l Level) Next() Level {
	for i, lv := range Levels {
		if lv == l {
			return Levels[(i+1)%len(Levels)]
		}
	}
	return DefaultLevel
}

func (l Level) String() string { return string(l) }

// ParseLevel parses a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown level %q (want one of N5, N4, N3, N2, N1)", s)
	}
	return l, nil
}

// LevelOrDefault parses s and falls back to DefaultLevel on failure.
func LevelOrDefault(s string) Level {
	l, err := ParseLevel(s)
	if err != nil {
		return DefaultLevel
	}
	return l
}

// Form selects which register of a sentence is displayed and played.
type Form string

const (
	FormCasual Form = "casual"
	FormPolite Form = "polite"
)

// Toggle flips between casual and polite.
func (f Form) Toggle() Form {
	if f == FormPolite {
		return FormCasual
	}
	return FormPolite
}

// ParseForm parses a form name; unknown values yield casual.
func ParseForm(s string) Form {
	if Form(strings.ToLower(s)) == FormPolite {
		return FormPolite
	}
	return FormCasual
}
