package llm

import (
	"errors"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("model passed through", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  "gpt-4o-mini", // would be mapped for openai; not here
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "gpt-4o-mini" || p.Name() != "openrouter" {
			t.Errorf("got %s/%s", p.Name(), p.ModelID())
		}
	})

	t.Run("vendor prefixed model", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey:  "sk-or-test",
			Model:   "anthropic/claude-3-haiku",
			BaseURL: "https://custom.openrouter.example/v1",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "anthropic/claude-3-haiku" {
			t.Errorf("model = %q", p.ModelID())
		}
	})

	t.Run("empty API key", func(t *testing.T) {
		_, err := NewOpenRouterProvider(OpenRouterConfig{Model: "openai/gpt-4o-mini"})
		var missing *ErrMissingAPIKey
		if !errors.As(err, &missing) || missing.Provider != "openrouter" {
			t.Fatalf("expected ErrMissingAPIKey for openrouter, got %v", err)
		}
	})

	t.Run("empty model", func(t *testing.T) {
		if _, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k"}); err == nil {
			t.Fatal("expected error for empty model")
		}
	})
}
