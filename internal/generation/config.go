package generation

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// MaxTokens is the token budget for the LLM response. Ten sentences
	// with two furigana sequences each run to roughly 3k tokens.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxVocabulary caps how many vocabulary words go into the prompt.
	MaxVocabulary int
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:     4096,
		Temperature:   0.8,
		MaxVocabulary: 40,
	}
}
