package vocab

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/shadowdeck/internal/store"
)

func newScreen(t *testing.T) (*Screen, store.VocabularyRepo) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	repo := st.VocabularyRepo()
	s := New(repo)
	s.Update(s.Init()())
	return s, repo
}

func typeText(s *Screen, text string) {
	for _, r := range text {
		s.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		in, word, reading string
	}{
		{"", "", ""},
		{"  猫  ", "猫", ""},
		{"猫 ねこ", "猫", "ねこ"},
		{"食べる　たべる", "食べる", "たべる"},
	}
	for _, tt := range tests {
		w, r := ParseEntry(tt.in)
		if w != tt.word || r != tt.reading {
			t.Errorf("ParseEntry(%q) = (%q, %q), want (%q, %q)", tt.in, w, r, tt.word, tt.reading)
		}
	}
}

func TestAddWord(t *testing.T) {
	s, repo := newScreen(t)
	assert.False(t, s.CapturesInput())

	s.Update(tea.KeyPressMsg{Code: 'a', Text: "a"})
	require.True(t, s.CapturesInput())

	typeText(s, "猫 ねこ")
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, s.CapturesInput())

	_, reload := s.Update(cmd())
	s.Update(reload())

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "猫", items[0].Word)
	assert.Equal(t, "ねこ", items[0].Reading)
	assert.Contains(t, s.View(80, 24), "Added 猫")
}

func TestEscCancelsInput(t *testing.T) {
	s, repo := newScreen(t)
	s.Update(tea.KeyPressMsg{Code: 'a', Text: "a"})
	typeText(s, "犬")
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Nil(t, cmd)
	assert.False(t, s.CapturesInput())

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteWord(t *testing.T) {
	s, repo := newScreen(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	_, err := repo.Add(ctx, store.VocabularyItem{Word: "駅", CreatedAt: base})
	require.NoError(t, err)
	_, err = repo.Add(ctx, store.VocabularyItem{Word: "電車", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	s.Update(s.list()())
	require.Len(t, s.items, 2)

	s.Update(tea.KeyPressMsg{Code: 'j', Text: "j"})
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'd', Text: "d"})
	_, reload := s.Update(cmd())
	s.Update(reload())

	require.Len(t, s.items, 1)
	assert.Equal(t, "駅", s.items[0].Word)
	assert.Equal(t, 0, s.cursor)
}
