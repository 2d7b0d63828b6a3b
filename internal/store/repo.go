package store

import (
	"context"
	"time"

	"github.com/abhisek/shadowdeck/internal/sentence"
)

// QueryOpts configures list queries with pagination.
type QueryOpts struct {
	Limit  int // max results (0 = unlimited)
	Offset int
}

// VocabularyItem is a word used to personalize generated sentences.
type VocabularyItem struct {
	ID        string
	Word      string
	Reading   string
	CreatedAt time.Time
}

// VocabularyRepo manages the learner's vocabulary list.
type VocabularyRepo interface {
	// Add inserts a word. Adding a word that already exists returns the
	// stored item unchanged.
	Add(ctx context.Context, item VocabularyItem) (VocabularyItem, error)

	// List returns all items, oldest first.
	List(ctx context.Context) ([]VocabularyItem, error)

	// Words returns just the words, oldest first.
	Words(ctx context.Context) ([]string, error)

	// Delete removes an item by ID or by word. Returns ErrNotFound if
	// nothing matched.
	Delete(ctx context.Context, idOrWord string) error

	// Count returns the number of items.
	Count(ctx context.Context) (int, error)
}

// SavedCard is a durable copy of a card the learner kept.
type SavedCard struct {
	ID        string
	Sentence  sentence.Sentence
	CreatedAt time.Time
	SavedAt   time.Time
}

// SavedCardRepo manages the learner's library.
type SavedCardRepo interface {
	// Save upserts a card by ID; saving the same ID twice keeps one row.
	Save(ctx context.Context, card SavedCard) error

	// Get returns a card by ID or ErrNotFound.
	Get(ctx context.Context, id string) (*SavedCard, error)

	// List returns cards, most recently saved first.
	List(ctx context.Context, opts QueryOpts) ([]SavedCard, error)

	// Delete removes a card by ID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// PracticeAttempt is one scored shadowing attempt.
type PracticeAttempt struct {
	ID           string
	CardID       string
	Score        int
	FeedbackText string
	Transcript   string
	CreatedAt    time.Time
}

// PracticeRepo records practice attempts.
type PracticeRepo interface {
	Add(ctx context.Context, a PracticeAttempt) error

	// ForCard returns attempts for a card, newest first.
	ForCard(ctx context.Context, cardID string, opts QueryOpts) ([]PracticeAttempt, error)

	// BestScore returns the highest score for a card and whether any
	// attempt exists.
	BestScore(ctx context.Context, cardID string) (int, bool, error)
}

// CachedSentence is a generated sentence stored for a level.
type CachedSentence struct {
	ID        string
	Level     sentence.Level
	Sentence  sentence.Sentence
	Sequence  int64
	CreatedAt time.Time
	UsedAt    *time.Time
}

// SentenceCacheRepo provides table-level access to cached sentences.
// Ranking and eviction policy live in the sentencecache package.
type SentenceCacheRepo interface {
	// ListByLevel returns every entry for level in insertion order.
	ListByLevel(ctx context.Context, level sentence.Level) ([]CachedSentence, error)

	// Texts returns the set of stored sentence texts for level.
	Texts(ctx context.Context, level sentence.Level) (map[string]bool, error)

	// Insert stores entries, assigning IDs and sequence numbers where
	// unset. Returns the stored entries.
	Insert(ctx context.Context, entries []CachedSentence) ([]CachedSentence, error)

	// MarkUsed sets used_at for the given IDs.
	MarkUsed(ctx context.Context, ids []string, at time.Time) error

	// DeleteIDs removes entries by ID and returns how many were removed.
	DeleteIDs(ctx context.Context, ids []string) (int, error)

	// DeleteLevel removes every entry for level, or for all levels when
	// level is empty.
	DeleteLevel(ctx context.Context, level sentence.Level) (int, error)

	// CountByLevel returns the number of entries for level.
	CountByLevel(ctx context.Context, level sentence.Level) (int, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for a purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event, or nil if absent.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates usage per model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
