package generation

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrMissingCredentials means no LLM provider is configured.
	ErrMissingCredentials = errors.New("generation unavailable: API key is not configured")

	// ErrInvalidFormat means the model reply was not a sentence list.
	ErrInvalidFormat = errors.New("invalid sentence format")

	// ErrNoSentences means the reply parsed but held no usable sentence.
	ErrNoSentences = errors.New("invalid sentence format: no sentences returned")
)

// Hints shown to the learner in place of raw error text.
const (
	CredentialsHint = "Server error: add OPENAI_API_KEY to .env"
	TimeoutHint     = "Taking too long. Check OPENAI_API_KEY and your connection."
)

// UserMessage converts a generation failure into the text shown to the
// learner. Errors mentioning the API (missing or rejected keys) become
// the credentials hint.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials), strings.Contains(err.Error(), "API"):
		return CredentialsHint
	case errors.Is(err, context.DeadlineExceeded):
		return TimeoutHint
	default:
		return err.Error()
	}
}
