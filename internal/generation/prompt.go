package generation

import (
	"fmt"
	"strings"
)

const outputFormat = `Return a JSON array only. Each item: {"sentence": string, "casual": string, "polite": string, "furiganaPolite": array, "furiganaCasual": array, "translation": string}.
- sentence: the sentence in the form you consider most natural.
- casual: plain/casual form (da, ru-verbs, etc.).
- polite: polite form (desu, masu).
- furiganaPolite / furiganaCasual: segments for the matching form, e.g. [{"text":"私","reading":"わたし"},{"text":"は"},{"text":"学生","reading":"がくせい"},{"text":"です。"}]. Give a hiragana reading for every kanji chunk; kana and punctuation chunks have no reading. Joining all segment texts must reproduce the form exactly.
- translation: a short natural English translation.`

// buildSystemPrompt picks the vocabulary or level-only instructions.
func buildSystemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a Japanese teacher writing sentences for shadowing practice. ")
	if len(req.Vocabulary) > 0 {
		fmt.Fprintf(&b, "Target level: %s. ", req.Level.Rubric())
		b.WriteString("USE the given vocabulary words in natural everyday sentences; each sentence should contain at least one of them. ")
		b.WriteString("Keep the rest of the grammar and kanji within the target level.\n\n")
	} else {
		fmt.Fprintf(&b, "Target level: %s. ", req.Level.Rubric())
		b.WriteString("Match grammar, kanji, and sentence complexity strictly to this level. ")
		b.WriteString("Vary topics across daily life situations.\n\n")
	}
	b.WriteString(outputFormat)
	return b.String()
}

// buildUserMessage states the request in one or two lines.
func buildUserMessage(req Request) string {
	if len(req.Vocabulary) > 0 {
		return fmt.Sprintf("Vocabulary words to use in the sentences: %s.\nGenerate exactly %d different sentences at %s level (%s).",
			strings.Join(req.Vocabulary, ", "), req.Count, req.Level, req.Level.Rubric())
	}
	return fmt.Sprintf("Generate exactly %d different Japanese sentences at %s level. Match the difficulty strictly: %s.",
		req.Count, req.Level, req.Level.Rubric())
}
