package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abhisek/shadowdeck/internal/llm"
)

type transcribeFunc func(ctx context.Context, path string) (string, error)

func (f transcribeFunc) Transcribe(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

func fixedTranscript(s string) Transcriber {
	return transcribeFunc(func(context.Context, string) (string, error) { return s, nil })
}

func TestScore(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockText("```json\n{\"score\": 86.6, \"feedback\": \"Clear vowels.\"}\n```"))
	s := New(fixedTranscript("  水を飲む  "), mock, nil)

	res, err := s.Score(context.Background(), "attempt.wav", "水を飲む。")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Score != 87 {
		t.Errorf("Score = %d, want 87", res.Score)
	}
	if res.Feedback != "Clear vowels." {
		t.Errorf("Feedback = %q", res.Feedback)
	}
	if res.Transcript != "水を飲む" {
		t.Errorf("Transcript = %q", res.Transcript)
	}

	req, ok := mock.LastCall()
	if !ok {
		t.Fatal("no request recorded")
	}
	if req.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", req.Temperature)
	}
	if req.Schema == nil || req.Schema.Name != "practice-feedback" {
		t.Errorf("Schema = %+v", req.Schema)
	}
	want := "Reference sentence: 水を飲む。\nUser said (transcribed): 水を飲む"
	if got := req.Messages[0].Content; got != want {
		t.Errorf("user message = %q, want %q", got, want)
	}
}

func TestScore_Defaults(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		score    int
		feedback string
	}{
		{"missing fields", `{}`, DefaultScore, DefaultFeedback},
		{"score only", `{"score": 140}`, 100, DefaultFeedback},
		{"negative", `{"score": -3, "feedback": "Try again."}`, 0, "Try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(fixedTranscript("x"), llm.NewMockProvider(llm.MockText(tt.body)), nil)
			res, err := s.Score(context.Background(), "a.wav", "ref")
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if res.Score != tt.score || res.Feedback != tt.feedback {
				t.Errorf("got (%d, %q), want (%d, %q)", res.Score, res.Feedback, tt.score, tt.feedback)
			}
		})
	}
}

func TestScore_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := New(fixedTranscript("x"), llm.NewMockProvider(), nil).Score(ctx, "a.wav", "  "); !errors.Is(err, ErrMissingReference) {
		t.Errorf("blank reference: err = %v", err)
	}
	if _, err := New(fixedTranscript("x"), nil, nil).Score(ctx, "a.wav", "ref"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("no provider: err = %v", err)
	}

	failing := transcribeFunc(func(context.Context, string) (string, error) { return "", errors.New("413 too large") })
	mock := llm.NewMockProvider()
	if _, err := New(failing, mock, nil).Score(ctx, "a.wav", "ref"); err == nil || !strings.Contains(err.Error(), "transcribe") {
		t.Errorf("transcription failure: err = %v", err)
	}
	if mock.CallCount() != 0 {
		t.Errorf("LLM called after failed transcription")
	}

	if _, err := New(fixedTranscript("x"), llm.NewMockProvider(llm.MockText("")), nil).Score(ctx, "a.wav", "ref"); err == nil {
		t.Error("empty model output: expected error")
	}
	if _, err := New(fixedTranscript("x"), llm.NewMockProvider(llm.MockText("great job")), nil).Score(ctx, "a.wav", "ref"); err == nil {
		t.Error("non-JSON model output: expected error")
	}
}

func TestClampScore(t *testing.T) {
	cases := map[float64]int{0: 0, 49.5: 50, 99.4: 99, 100: 100, 250: 100, -1: 0}
	for in, want := range cases {
		if got := ClampScore(in); got != want {
			t.Errorf("ClampScore(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestWhisperTranscriber(t *testing.T) {
	var fields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fields = map[string]string{
			"model":    r.FormValue("model"),
			"language": r.FormValue("language"),
		}
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "こんにちは"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "attempt.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}

	w := NewWhisperTranscriber(WhisperConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	text, err := w.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "こんにちは" {
		t.Errorf("text = %q", text)
	}
	if fields["model"] != "whisper-1" || fields["language"] != "ja" {
		t.Errorf("form fields = %v", fields)
	}
}
