// Package sentencecache keeps a bounded per-level pool of generated
// sentences. Fresh entries are served before recycled ones, and the
// oldest entries by last activity are evicted once a level is full.
package sentencecache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/store"
)

// DefaultCapacity is the maximum number of entries kept per level.
const DefaultCapacity = 50

// Entry is a cached generated sentence.
type Entry = store.CachedSentence

// Cache applies ranking and eviction over the cached sentence table.
type Cache struct {
	repo     store.SentenceCacheRepo
	capacity int
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity overrides the per-level cap.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithLogger sets the logger used for swallowed write errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over repo.
func New(repo store.SentenceCacheRepo, opts ...Option) *Cache {
	c := &Cache{
		repo:     repo,
		capacity: DefaultCapacity,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Capacity returns the per-level cap.
func (c *Cache) Capacity() int { return c.capacity }

// FetchLeastRecentlyUsed returns up to count entries for level, never-used
// entries first by creation time, then used entries by last use. Every
// returned entry is stamped as used now.
func (c *Cache) FetchLeastRecentlyUsed(ctx context.Context, level sentence.Level, count int) ([]Entry, error) {
	if count <= 0 {
		return nil, nil
	}
	all, err := c.repo.ListByLevel(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("fetch cached sentences: %w", err)
	}

	sort.SliceStable(all, func(i, j int) bool { return fetchLess(all[i], all[j]) })
	if len(all) > count {
		all = all[:count]
	}
	if len(all) == 0 {
		return nil, nil
	}

	now := c.now()
	ids := make([]string, len(all))
	for i := range all {
		ids[i] = all[i].ID
	}
	if err := c.repo.MarkUsed(ctx, ids, now); err != nil {
		return nil, fmt.Errorf("mark cached sentences used: %w", err)
	}
	for i := range all {
		t := now
		all[i].UsedAt = &t
	}
	return all, nil
}

func fetchLess(a, b Entry) bool {
	switch {
	case a.UsedAt == nil && b.UsedAt != nil:
		return true
	case a.UsedAt != nil && b.UsedAt == nil:
		return false
	case a.UsedAt == nil:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	default:
		if !a.UsedAt.Equal(*b.UsedAt) {
			return a.UsedAt.Before(*b.UsedAt)
		}
	}
	return a.Sequence < b.Sequence
}

// AddGenerated stores sentences for level, skipping texts already present,
// then evicts down to capacity. Failures are logged, never returned.
func (c *Cache) AddGenerated(ctx context.Context, level sentence.Level, sentences []sentence.Sentence) {
	if len(sentences) == 0 {
		return
	}
	existing, err := c.repo.Texts(ctx, level)
	if err != nil {
		c.logger.Warn("sentence cache: read existing texts", "level", level, "error", err)
		return
	}

	now := c.now()
	var fresh []Entry
	for _, s := range sentences {
		text := strings.TrimSpace(s.Text)
		if text == "" || existing[text] {
			continue
		}
		existing[text] = true
		s.Text = text
		s.Level = level
		fresh = append(fresh, Entry{Level: level, Sentence: s, CreatedAt: now})
	}
	if len(fresh) == 0 {
		return
	}

	if _, err := c.repo.Insert(ctx, fresh); err != nil {
		c.logger.Warn("sentence cache: insert", "level", level, "count", len(fresh), "error", err)
		return
	}
	if _, err := c.Evict(ctx, level, c.capacity); err != nil {
		c.logger.Warn("sentence cache: evict", "level", level, "error", err)
	}
}

// Evict deletes the least recently active entries for level until at most
// keep remain. Activity is UsedAt, or CreatedAt for never-used entries.
func (c *Cache) Evict(ctx context.Context, level sentence.Level, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	all, err := c.repo.ListByLevel(ctx, level)
	if err != nil {
		return 0, err
	}
	excess := len(all) - keep
	if excess <= 0 {
		return 0, nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		ai, aj := activity(all[i]), activity(all[j])
		if !ai.Equal(aj) {
			return ai.Before(aj)
		}
		return all[i].Sequence < all[j].Sequence
	})
	ids := make([]string, excess)
	for i := range ids {
		ids[i] = all[i].ID
	}
	return c.repo.DeleteIDs(ctx, ids)
}

func activity(e Entry) time.Time {
	if e.UsedAt != nil {
		return *e.UsedAt
	}
	return e.CreatedAt
}

// Count returns the number of entries for level.
func (c *Cache) Count(ctx context.Context, level sentence.Level) (int, error) {
	return c.repo.CountByLevel(ctx, level)
}

// Clear removes every entry for level, or for all levels when level is empty.
func (c *Cache) Clear(ctx context.Context, level sentence.Level) (int, error) {
	return c.repo.DeleteLevel(ctx, level)
}

// Stats returns the entry count and never-used count for each level.
func (c *Cache) Stats(ctx context.Context) ([]LevelStats, error) {
	out := make([]LevelStats, 0, len(sentence.Levels))
	for _, l := range sentence.Levels {
		all, err := c.repo.ListByLevel(ctx, l)
		if err != nil {
			return nil, err
		}
		st := LevelStats{Level: l, Total: len(all)}
		for _, e := range all {
			if e.UsedAt == nil {
				st.Unused++
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// LevelStats summarizes one level's cache.
type LevelStats struct {
	Level  sentence.Level
	Total  int
	Unused int
}
