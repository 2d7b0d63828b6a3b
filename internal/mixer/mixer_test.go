package mixer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/shadowdeck/internal/generation"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/sentencecache"
	"github.com/abhisek/shadowdeck/internal/staticpool"
	"github.com/abhisek/shadowdeck/internal/task"
)

func staticSet(level sentence.Level, n int) *staticpool.Pool {
	items := make([]sentence.Sentence, n)
	for i := range items {
		items[i] = sentence.Sentence{Text: fmt.Sprintf("static-%s-%02d", level, i), Level: level}
	}
	return staticpool.FromSentences(items)
}

type fakeCache struct {
	mu      sync.Mutex
	entries []sentencecache.Entry
	added   [][]sentence.Sentence
	err     error
	asked   []int
}

func (c *fakeCache) FetchLeastRecentlyUsed(_ context.Context, level sentence.Level, count int) ([]sentencecache.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asked = append(c.asked, count)
	if c.err != nil {
		return nil, c.err
	}
	var out []sentencecache.Entry
	for _, e := range c.entries {
		if e.Level == level && len(out) < count {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *fakeCache) AddGenerated(_ context.Context, _ sentence.Level, s []sentence.Sentence) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, s)
}

type fakeVocab struct {
	words []string
	err   error
}

func (v fakeVocab) Words(context.Context) ([]string, error) { return v.words, v.err }

type fakeGenerator struct {
	mu       sync.Mutex
	requests []generation.Request
	err      error
}

func (g *fakeGenerator) Generate(_ context.Context, req generation.Request) ([]sentence.Sentence, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	out := make([]sentence.Sentence, req.Count)
	for i := range out {
		out[i] = sentence.Sentence{Text: fmt.Sprintf("generated-%d", i)}
	}
	return out, nil
}

// inlineTasks runs each task synchronously and records errors.
type inlineTasks struct {
	submitted []task.Task
	errs      []error
}

func (s *inlineTasks) Go(t task.Task) {
	s.submitted = append(s.submitted, t)
	if err := t.Run(context.Background()); err != nil {
		s.errs = append(s.errs, err)
	}
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func texts(batch []sentence.Sentence) map[string]bool {
	out := make(map[string]bool, len(batch))
	for _, s := range batch {
		out[s.Text] = true
	}
	return out
}

func countPrefix(batch []sentence.Sentence, prefix string) int {
	n := 0
	for _, s := range batch {
		if len(s.Text) >= len(prefix) && s.Text[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func TestSplit(t *testing.T) {
	m := New(staticSet(sentence.N5, 0), &fakeCache{}, fakeVocab{}, nil, nil)
	tests := []struct{ count, static, generated int }{
		{10, 7, 3}, {5, 3, 2}, {1, 0, 1}, {3, 2, 1}, {0, 0, 0},
	}
	for _, tt := range tests {
		s, g := m.Split(tt.count)
		assert.Equal(t, tt.static, s, "static for %d", tt.count)
		assert.Equal(t, tt.generated, g, "generated for %d", tt.count)
	}
}

func TestFetchBatch_NoVocabularyIsStaticOnly(t *testing.T) {
	cache := &fakeCache{}
	gen := &fakeGenerator{}
	tasks := &inlineTasks{}
	m := New(staticSet(sentence.N5, 30), cache, fakeVocab{}, gen, tasks, WithLogger(quietLogger()))

	batch, err := m.FetchBatch(context.Background(), sentence.N5, 10)
	require.NoError(t, err)
	assert.Len(t, batch, 10)
	assert.Len(t, texts(batch), 10, "no duplicates")
	assert.Equal(t, 10, countPrefix(batch, "static-N5"))
	assert.Empty(t, cache.asked, "cache untouched without vocabulary")
	assert.Empty(t, tasks.submitted, "no generation without vocabulary")
}

func TestFetchBatch_CacheShortfallScenario(t *testing.T) {
	cache := &fakeCache{entries: []sentencecache.Entry{
		{ID: "c1", Level: sentence.N5, Sentence: sentence.Sentence{Text: "cached-one"}, CreatedAt: time.Now()},
	}}
	gen := &fakeGenerator{}
	tasks := &inlineTasks{}
	m := New(staticSet(sentence.N5, 30), cache, fakeVocab{words: []string{"食べる"}}, gen, tasks, WithLogger(quietLogger()))

	batch, err := m.FetchBatch(context.Background(), sentence.N5, 10)
	require.NoError(t, err)
	require.Len(t, batch, 10)
	assert.Equal(t, 9, countPrefix(batch, "static-N5"), "7 static plus 2 filling the shortfall")
	assert.True(t, texts(batch)["cached-one"])
	assert.Len(t, texts(batch), 10)

	assert.Equal(t, []int{3}, cache.asked)
	require.Len(t, tasks.submitted, 1)
	assert.Equal(t, "generate:N5", tasks.submitted[0].Key)
	require.Len(t, gen.requests, 1)
	assert.Equal(t, generation.Request{Vocabulary: []string{"食べる"}, Count: 2, Level: sentence.N5}, gen.requests[0])
	require.Len(t, cache.added, 1)
	assert.Len(t, cache.added[0], 2, "generated sentences feed the cache")

	for _, s := range batch {
		if s.Text == "cached-one" {
			assert.Equal(t, sentence.N5, s.Level)
		}
	}
}

func TestFetchBatch_FullCacheNoGeneration(t *testing.T) {
	var entries []sentencecache.Entry
	for i := 0; i < 5; i++ {
		entries = append(entries, sentencecache.Entry{
			ID: fmt.Sprint(i), Level: sentence.N4, Sentence: sentence.Sentence{Text: fmt.Sprintf("cached-%d", i)},
		})
	}
	cache := &fakeCache{entries: entries}
	tasks := &inlineTasks{}
	m := New(staticSet(sentence.N4, 10), cache, fakeVocab{words: []string{"雨"}}, &fakeGenerator{}, tasks)

	batch, err := m.FetchBatch(context.Background(), sentence.N4, 5)
	require.NoError(t, err)
	assert.Len(t, batch, 5)
	assert.Equal(t, 3, countPrefix(batch, "static-N4"))
	assert.Equal(t, 2, countPrefix(batch, "cached-"))
	assert.Empty(t, tasks.submitted)
}

func TestFetchBatch_EmptySources(t *testing.T) {
	tasks := &inlineTasks{}
	for _, vocab := range [][]string{nil, {"猫"}} {
		m := New(staticSet(sentence.N1, 0), &fakeCache{}, fakeVocab{words: vocab}, &fakeGenerator{}, tasks, WithLogger(quietLogger()))
		for c := 0; c <= 10; c++ {
			batch, err := m.FetchBatch(context.Background(), sentence.N1, c)
			require.NoError(t, err)
			assert.Empty(t, batch)
		}
	}
}

func TestFetchBatch_NeverExceedsCount(t *testing.T) {
	cache := &fakeCache{}
	for i := 0; i < 20; i++ {
		cache.entries = append(cache.entries, sentencecache.Entry{
			ID: fmt.Sprint(i), Level: sentence.N3, Sentence: sentence.Sentence{Text: fmt.Sprintf("cached-%d", i)},
		})
	}
	m := New(staticSet(sentence.N3, 4), cache, fakeVocab{words: []string{"駅"}}, &fakeGenerator{}, &inlineTasks{}, WithLogger(quietLogger()))
	for c := 1; c <= 10; c++ {
		batch, err := m.FetchBatch(context.Background(), sentence.N3, c)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(batch), c)
	}
}

func TestFetchBatch_SmallStaticPool(t *testing.T) {
	m := New(staticSet(sentence.N2, 3), &fakeCache{}, fakeVocab{}, nil, nil)
	batch, err := m.FetchBatch(context.Background(), sentence.N2, 10)
	require.NoError(t, err)
	assert.Len(t, batch, 3)
}

func TestFetchBatch_Errors(t *testing.T) {
	t.Run("vocabulary", func(t *testing.T) {
		m := New(staticSet(sentence.N5, 10), &fakeCache{}, fakeVocab{err: errors.New("db locked")}, nil, nil)
		_, err := m.FetchBatch(context.Background(), sentence.N5, 5)
		assert.ErrorContains(t, err, "db locked")
	})

	t.Run("cache read propagates", func(t *testing.T) {
		cacheErr := errors.New("disk I/O error")
		m := New(staticSet(sentence.N5, 10), &fakeCache{err: cacheErr}, fakeVocab{words: []string{"猫"}}, nil, nil)
		_, err := m.FetchBatch(context.Background(), sentence.N5, 5)
		assert.ErrorIs(t, err, cacheErr)
	})

	t.Run("background generation failure stays in background", func(t *testing.T) {
		tasks := &inlineTasks{}
		cache := &fakeCache{}
		m := New(staticSet(sentence.N5, 10), cache, fakeVocab{words: []string{"猫"}},
			&fakeGenerator{err: generation.ErrMissingCredentials}, tasks, WithLogger(quietLogger()))
		batch, err := m.FetchBatch(context.Background(), sentence.N5, 5)
		require.NoError(t, err)
		assert.Len(t, batch, 5)
		require.Len(t, tasks.errs, 1)
		assert.ErrorIs(t, tasks.errs[0], generation.ErrMissingCredentials)
		assert.Empty(t, cache.added)
	})
}

func TestWithStaticRatio(t *testing.T) {
	m := New(staticSet(sentence.N5, 0), &fakeCache{}, fakeVocab{}, nil, nil, WithStaticRatio(0.5), WithStaticRatio(3))
	s, g := m.Split(10)
	assert.Equal(t, 5, s)
	assert.Equal(t, 5, g)
}
