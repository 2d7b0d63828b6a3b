// Package library lists saved cards and loads one back into the deck.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/shadowdeck/internal/router"
	"github.com/abhisek/shadowdeck/internal/screen"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/store"
	"github.com/abhisek/shadowdeck/internal/ui/layout"
	"github.com/abhisek/shadowdeck/internal/ui/theme"
)

const pageSize = 200

// Loader puts a saved card at the head of the queue.
type Loader interface {
	LoadSingle(ctx context.Context, cardID string, speed float64) error
	Settings() (sentence.Level, float64)
}

// Scores looks up the best practice score for a card.
type Scores interface {
	BestScore(ctx context.Context, cardID string) (int, bool, error)
}

type entry struct {
	card  store.SavedCard
	best  int
	tried bool
}

type loadedMsg struct {
	entries []entry
	err     error
}

type deletedMsg struct {
	id  string
	err error
}

type openFailedMsg struct {
	err error
}

// Screen is the saved-card library.
type Screen struct {
	cards    store.SavedCardRepo
	scores   Scores
	loader   Loader
	openDeck func() screen.Screen
	history  func(store.SavedCard) screen.Screen

	entries    []entry
	cursor     int
	loaded     bool
	confirming bool
	errMsg     string
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
)

// New creates the library screen. openDeck builds the deck screen that
// replaces this one after a card is loaded. scores may be nil.
func New(cards store.SavedCardRepo, scores Scores, loader Loader, openDeck func() screen.Screen) *Screen {
	return &Screen{cards: cards, scores: scores, loader: loader, openDeck: openDeck}
}

// WithHistory enables the h key, which opens a card's practice
// attempts.
func (s *Screen) WithHistory(open func(store.SavedCard) screen.Screen) *Screen {
	s.history = open
	return s
}

func (s *Screen) Title() string { return "Library" }

func (s *Screen) Init() tea.Cmd {
	return s.load()
}

func (s *Screen) load() tea.Cmd {
	cards, scores := s.cards, s.scores
	return func() tea.Msg {
		ctx := context.Background()
		saved, err := cards.List(ctx, store.QueryOpts{Limit: pageSize})
		if err != nil {
			return loadedMsg{err: err}
		}
		entries := make([]entry, len(saved))
		for i, c := range saved {
			entries[i].card = c
			if scores != nil {
				entries[i].best, entries[i].tried, _ = scores.BestScore(ctx, c.ID)
			}
		}
		return loadedMsg{entries: entries}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		if msg.err != nil {
			s.errMsg = "Could not load library: " + msg.err.Error()
			return s, nil
		}
		s.entries = msg.entries
		s.cursor = min(s.cursor, max(len(s.entries)-1, 0))
		return s, nil

	case deletedMsg:
		if msg.err != nil && !errors.Is(msg.err, store.ErrNotFound) {
			s.errMsg = "Could not delete card: " + msg.err.Error()
			return s, nil
		}
		return s, s.load()

	case openFailedMsg:
		s.errMsg = msg.err.Error()
		return s, nil

	case tea.KeyMsg:
		return s, s.handleKey(msg.String())
	}
	return s, nil
}

func (s *Screen) handleKey(key string) tea.Cmd {
	if s.confirming {
		s.confirming = false
		if key == "y" && len(s.entries) > 0 {
			id, cards := s.entries[s.cursor].card.ID, s.cards
			return func() tea.Msg {
				return deletedMsg{id: id, err: cards.Delete(context.Background(), id)}
			}
		}
		return nil
	}

	switch key {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.entries)-1 {
			s.cursor++
		}
	case "d":
		if len(s.entries) > 0 {
			s.confirming = true
		}
	case "h":
		if s.history == nil || len(s.entries) == 0 {
			return nil
		}
		next := s.history(s.entries[s.cursor].card)
		return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
	case "enter":
		if len(s.entries) == 0 {
			return nil
		}
		s.errMsg = ""
		id, loader, open := s.entries[s.cursor].card.ID, s.loader, s.openDeck
		return func() tea.Msg {
			_, speed := loader.Settings()
			if err := loader.LoadSingle(context.Background(), id, speed); err != nil {
				return openFailedMsg{err: err}
			}
			return router.ReplaceScreenMsg{Screen: open()}
		}
	}
	return nil
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case !s.loaded:
		b.WriteString(theme.Subtitle.Width(width).Render("Loading..."))
		return b.String()
	case len(s.entries) == 0 && s.errMsg == "":
		b.WriteString(theme.Subtitle.Width(width).Render(
			"No saved cards yet.\n\nPress S on a card in the deck to keep it here."))
		return b.String()
	}

	// Keep the cursor on screen.
	visible := max(height-6, 1)
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}
	end := min(start+visible, len(s.entries))

	for i := start; i < end; i++ {
		b.WriteString(s.renderRow(i, width))
		b.WriteString("\n")
	}

	if s.confirming {
		b.WriteString("\n" + theme.ErrorText.Render("  Delete this card? (y/n)"))
	}
	if s.errMsg != "" {
		b.WriteString("\n" + theme.ErrorText.Render("  "+s.errMsg))
	}
	return b.String()
}

func (s *Screen) renderRow(i, width int) string {
	e := s.entries[i]
	prefix := "    "
	style := theme.Unselected
	if i == s.cursor {
		prefix = "  ▸ "
		style = theme.Selected
	}

	level := theme.Badge.Render(fmt.Sprintf("%-3s", e.card.Sentence.Level))
	score := theme.Hint.Render("  --")
	if e.tried {
		score = theme.ScoreStyle(e.best).Render(fmt.Sprintf("%4d", e.best))
	}
	date := theme.Hint.Render(e.card.SavedAt.Format("2006-01-02"))

	text := e.card.Sentence.Text
	room := width - lipgloss.Width(prefix) - 3 - 4 - 10 - 8
	if lipgloss.Width(text) > room && room > 1 {
		text = truncate(text, room-1) + "…"
	}
	return prefix + level + " " + style.Render(text) +
		strings.Repeat(" ", max(room-lipgloss.Width(text), 1)) + score + "  " + date
}

func truncate(s string, width int) string {
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > width {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String()
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.confirming {
		return []layout.KeyHint{
			{Key: "Y", Description: "Delete"},
			{Key: "N", Description: "Keep"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Practice"},
		{Key: "H", Description: "History"},
		{Key: "D", Description: "Delete"},
		{Key: "Esc", Description: "Back"},
	}
}
