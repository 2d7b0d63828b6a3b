// Package history shows the practice attempts recorded for one saved
// card.
package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/shadowdeck/internal/router"
	"github.com/abhisek/shadowdeck/internal/screen"
	"github.com/abhisek/shadowdeck/internal/store"
	"github.com/abhisek/shadowdeck/internal/ui/layout"
	"github.com/abhisek/shadowdeck/internal/ui/theme"
)

const maxAttempts = 50

// Attempts lists a card's attempts, newest first.
type Attempts interface {
	ForCard(ctx context.Context, cardID string, opts store.QueryOpts) ([]store.PracticeAttempt, error)
}

type loadedMsg struct {
	attempts []store.PracticeAttempt
	err      error
}

// Screen lists attempts; enter expands one to show its transcript and
// feedback.
type Screen struct {
	repo Attempts
	card store.SavedCard

	attempts []store.PracticeAttempt
	selected int
	expanded map[int]bool
	loaded   bool
	errMsg   string
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
)

// New creates the history screen for card.
func New(repo Attempts, card store.SavedCard) *Screen {
	return &Screen{repo: repo, card: card, expanded: make(map[int]bool)}
}

func (s *Screen) Init() tea.Cmd {
	repo, id := s.repo, s.card.ID
	return func() tea.Msg {
		attempts, err := repo.ForCard(context.Background(), id, store.QueryOpts{Limit: maxAttempts})
		return loadedMsg{attempts: attempts, err: err}
	}
}

func (s *Screen) Title() string { return "History" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		s.attempts = msg.attempts
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.attempts)-1 {
				s.selected++
			}
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	center := func(str string) string { return lipgloss.PlaceHorizontal(width, lipgloss.Center, str) }

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center(theme.Sentence.Render(s.card.Sentence.CasualText())))
	b.WriteString("\n\n")

	switch {
	case s.errMsg != "":
		b.WriteString(center(theme.ErrorText.Render("Error: " + s.errMsg)))
		return b.String()
	case !s.loaded:
		b.WriteString(center(theme.Hint.Render("Loading attempts...")))
		return b.String()
	case len(s.attempts) == 0:
		b.WriteString(center(theme.Hint.Italic(true).Render("No attempts yet. Open the card and press R to record.")))
		return b.String()
	}

	best := 0
	for _, a := range s.attempts {
		best = max(best, a.Score)
	}
	b.WriteString(center(theme.Hint.Render(fmt.Sprintf("%d attempts, best %d", len(s.attempts), best))))
	b.WriteString("\n\n")

	for i, a := range s.attempts {
		prefix := "  "
		style := theme.Unselected
		if i == s.selected {
			prefix = "▸ "
			style = theme.Selected
		}
		line := style.Render(prefix+a.CreatedAt.Local().Format("Jan 02 15:04")) + "  " +
			theme.ScoreStyle(a.Score).Render(fmt.Sprintf("%3d", a.Score))
		b.WriteString(center(line))
		b.WriteString("\n")

		if s.expanded[i] {
			detail := lipgloss.NewStyle().Width(min(width-8, 60)).PaddingLeft(4)
			if a.Transcript != "" {
				b.WriteString(center(detail.Inherit(theme.Body).Render("heard: " + a.Transcript)))
				b.WriteString("\n")
			}
			if a.FeedbackText != "" {
				b.WriteString(center(detail.Inherit(theme.Hint).Render(a.FeedbackText)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
