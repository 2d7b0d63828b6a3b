package app

import (
	"context"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/shadowdeck/internal/card"
	"github.com/abhisek/shadowdeck/internal/logging"
	"github.com/abhisek/shadowdeck/internal/queue"
	"github.com/abhisek/shadowdeck/internal/router"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/store"
)

type emptyMixer struct{}

func (emptyMixer) FetchBatch(context.Context, sentence.Level, int) ([]sentence.Sentence, error) {
	return nil, nil
}

func newOptions(t *testing.T) Options {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := logging.Discard()
	q := queue.New(emptyMixer{}, card.NewBuilder(nil, logger), st.SavedCardRepo(), queue.DefaultConfig(),
		queue.WithLogger(logger), queue.WithSettings(sentence.N4, 0.9))
	t.Cleanup(q.Close)

	return Options{
		Queue:      q,
		Vocabulary: st.VocabularyRepo(),
		Library:    st.SavedCardRepo(),
		Attempts:   st.PracticeRepo(),
		Logger:     logger,
	}
}

// drive runs cmd and feeds any navigation messages it yields back into m.
func drive(m AppModel, cmd tea.Cmd) AppModel {
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drive(m, c)
		}
	case router.PushScreenMsg, router.PopScreenMsg, router.ReplaceScreenMsg:
		next, _ := m.Update(msg)
		m = next.(AppModel)
	}
	return m
}

func press(m AppModel, msg tea.KeyPressMsg) AppModel {
	next, cmd := m.Update(msg)
	return drive(next.(AppModel), cmd)
}

func TestSettingsInHeader(t *testing.T) {
	m := newAppModel(newOptions(t))
	t.Cleanup(m.router.Close)

	level, speed := m.settings()
	assert.Equal(t, "N4", level)
	assert.Equal(t, 0.9, speed)
}

func TestEscPopsButNotFromInput(t *testing.T) {
	m := newAppModel(newOptions(t))
	t.Cleanup(m.router.Close)

	// Shadow, Library, Vocabulary
	m = press(m, tea.KeyPressMsg{Code: tea.KeyDown})
	m = press(m, tea.KeyPressMsg{Code: tea.KeyDown})
	m = press(m, tea.KeyPressMsg{Code: tea.KeyEnter})
	require.Equal(t, "Vocabulary", m.router.Active().Title())

	m = press(m, tea.KeyPressMsg{Code: 'a', Text: "a"})
	m = press(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	require.Equal(t, "Vocabulary", m.router.Active().Title(), "esc should only close the input")

	m = press(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Equal(t, "Home", m.router.Active().Title())
	assert.Equal(t, 1, m.router.Depth())
}

func TestEscAtHomeStays(t *testing.T) {
	m := newAppModel(newOptions(t))
	t.Cleanup(m.router.Close)

	m = press(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Equal(t, 1, m.router.Depth())
}

func TestStatsLoader(t *testing.T) {
	opts := newOptions(t)
	ctx := context.Background()
	_, err := opts.Vocabulary.Add(ctx, store.VocabularyItem{Word: "駅"})
	require.NoError(t, err)

	st, err := statsLoader(opts)(ctx)
	require.NoError(t, err)
	assert.Equal(t, sentence.N4, st.Level)
	assert.Equal(t, 1, st.Words)
	assert.Zero(t, st.Cached)
}
