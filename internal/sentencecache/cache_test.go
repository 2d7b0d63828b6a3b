package sentencecache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/store"
)

func openRepo(t *testing.T) store.SentenceCacheRepo {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.SentenceCacheRepo()
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, opts ...Option) (*Cache, *clock) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.now)}, opts...)
	return New(openRepo(t), opts...), clk
}

func sentences(texts ...string) []sentence.Sentence {
	out := make([]sentence.Sentence, len(texts))
	for i, tx := range texts {
		out[i] = sentence.Sentence{Text: tx, Casual: tx, Polite: tx + "です"}
	}
	return out
}

func texts(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Sentence.Text
	}
	return out
}

func TestAddGeneratedIsIdempotentOnText(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.AddGenerated(ctx, sentence.N5, sentences("猫がいる", "犬がいる", "猫がいる"))
	c.AddGenerated(ctx, sentence.N5, sentences("猫がいる"))

	n, err := c.Count(ctx, sentence.N5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Same text at another level is a separate entry.
	c.AddGenerated(ctx, sentence.N4, sentences("猫がいる"))
	n, err = c.Count(ctx, sentence.N4)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCapacityInvariant(t *testing.T) {
	c, clk := newTestCache(t, WithCapacity(50))
	ctx := context.Background()

	for batch := 0; batch < 7; batch++ {
		var items []string
		for i := 0; i < 10; i++ {
			items = append(items, fmt.Sprintf("文%d-%d", batch, i))
		}
		c.AddGenerated(ctx, sentence.N3, sentences(items...))
		clk.advance(time.Second)

		n, err := c.Count(ctx, sentence.N3)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 50, "after batch %d", batch)
	}

	n, err := c.Count(ctx, sentence.N3)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	// The two oldest batches were evicted.
	all, err := c.FetchLeastRecentlyUsed(ctx, sentence.N3, 50)
	require.NoError(t, err)
	for _, tx := range texts(all) {
		assert.NotContains(t, []string{"文0-0", "文1-9"}, tx)
	}
}

func TestEvictionPrefersStaleActivity(t *testing.T) {
	c, clk := newTestCache(t, WithCapacity(2))
	ctx := context.Background()

	c.AddGenerated(ctx, sentence.N5, sentences("古い"))
	clk.advance(time.Minute)
	c.AddGenerated(ctx, sentence.N5, sentences("中間"))
	clk.advance(time.Minute)

	// Using the oldest entry refreshes its activity.
	got, err := c.FetchLeastRecentlyUsed(ctx, sentence.N5, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"古い"}, texts(got))
	clk.advance(time.Minute)

	c.AddGenerated(ctx, sentence.N5, sentences("新しい"))

	all, err := c.repo.ListByLevel(ctx, sentence.N5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"古い", "新しい"}, texts(all))
}

func TestFetchRanking(t *testing.T) {
	c, clk := newTestCache(t)
	ctx := context.Background()

	c.AddGenerated(ctx, sentence.N5, sentences("一", "二", "三"))
	all, err := c.repo.ListByLevel(ctx, sentence.N5)
	require.NoError(t, err)
	require.Len(t, all, 3)

	t1 := clk.t.Add(time.Minute)
	t2 := clk.t.Add(2 * time.Minute)
	require.NoError(t, c.repo.MarkUsed(ctx, []string{all[0].ID}, t2))
	require.NoError(t, c.repo.MarkUsed(ctx, []string{all[1].ID}, t1))
	clk.advance(time.Hour)

	got, err := c.FetchLeastRecentlyUsed(ctx, sentence.N5, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"三"}, texts(got), "never-used entry comes first")

	got, err = c.FetchLeastRecentlyUsed(ctx, sentence.N5, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"二"}, texts(got), "smaller usedAt comes next")
	require.NotNil(t, got[0].UsedAt)
	assert.True(t, got[0].UsedAt.Equal(clk.t))
}

func TestFetchUnusedByCreationOrder(t *testing.T) {
	c, clk := newTestCache(t)
	ctx := context.Background()

	c.AddGenerated(ctx, sentence.N2, sentences("b"))
	clk.advance(time.Second)
	c.AddGenerated(ctx, sentence.N2, sentences("a"))

	got, err := c.FetchLeastRecentlyUsed(ctx, sentence.N2, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, texts(got))

	got, err = c.FetchLeastRecentlyUsed(ctx, sentence.N1, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStatsAndClear(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.AddGenerated(ctx, sentence.N5, sentences("一", "二"))
	c.AddGenerated(ctx, sentence.N1, sentences("三"))
	_, err := c.FetchLeastRecentlyUsed(ctx, sentence.N5, 1)
	require.NoError(t, err)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, len(sentence.Levels))
	for _, st := range stats {
		switch st.Level {
		case sentence.N5:
			assert.Equal(t, LevelStats{Level: sentence.N5, Total: 2, Unused: 1}, st)
		case sentence.N1:
			assert.Equal(t, 1, st.Total)
		default:
			assert.Zero(t, st.Total)
		}
	}

	removed, err := c.Clear(ctx, sentence.N5)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	n, _ := c.Count(ctx, sentence.N1)
	assert.Equal(t, 1, n)
}

type failingRepo struct {
	store.SentenceCacheRepo
	err error
}

func (f failingRepo) Texts(context.Context, sentence.Level) (map[string]bool, error) {
	return nil, f.err
}

func (f failingRepo) ListByLevel(context.Context, sentence.Level) ([]store.CachedSentence, error) {
	return nil, f.err
}

func TestAddGeneratedSwallowsErrors(t *testing.T) {
	c := New(failingRepo{err: errors.New("disk full")})
	assert.NotPanics(t, func() {
		c.AddGenerated(context.Background(), sentence.N5, sentences("一"))
	})
}

func TestFetchPropagatesErrors(t *testing.T) {
	boom := errors.New("disk full")
	c := New(failingRepo{err: boom})
	_, err := c.FetchLeastRecentlyUsed(context.Background(), sentence.N5, 3)
	assert.ErrorIs(t, err, boom)
}
