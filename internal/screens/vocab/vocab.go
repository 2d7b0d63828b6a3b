// Package vocab manages the word list used to personalize generated
// sentences.
package vocab

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/shadowdeck/internal/screen"
	"github.com/abhisek/shadowdeck/internal/store"
	"github.com/abhisek/shadowdeck/internal/ui/components"
	"github.com/abhisek/shadowdeck/internal/ui/layout"
	"github.com/abhisek/shadowdeck/internal/ui/theme"
)

type listedMsg struct {
	items []store.VocabularyItem
	err   error
}

type changedMsg struct {
	flash string
	err   error
}

// Screen lists vocabulary and adds or removes words.
type Screen struct {
	repo store.VocabularyRepo

	items  []store.VocabularyItem
	cursor int
	adding bool
	input  components.TextInput
	flash  string
	errMsg string
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.InputCapturer   = (*Screen)(nil)
)

// New creates the vocabulary screen.
func New(repo store.VocabularyRepo) *Screen {
	return &Screen{
		repo:  repo,
		input: components.NewTextInput("Word:", "猫 ねこ", 64),
	}
}

func (s *Screen) Title() string { return "Vocabulary" }

func (s *Screen) Init() tea.Cmd { return s.list() }

// CapturesInput is true while the add field is open.
func (s *Screen) CapturesInput() bool { return s.adding }

func (s *Screen) list() tea.Cmd {
	repo := s.repo
	return func() tea.Msg {
		items, err := repo.List(context.Background())
		return listedMsg{items: items, err: err}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case listedMsg:
		if msg.err != nil {
			s.errMsg = "Could not load vocabulary: " + msg.err.Error()
			return s, nil
		}
		s.items = msg.items
		s.cursor = min(s.cursor, max(len(s.items)-1, 0))
		return s, nil

	case changedMsg:
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		s.errMsg = ""
		s.flash = msg.flash
		return s, s.list()

	case tea.KeyMsg:
		if s.adding {
			return s, s.handleInputKey(msg)
		}
		return s, s.handleKey(msg.String())
	}

	if s.adding {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *Screen) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		s.adding = false
		s.input.Reset()
		return nil
	case "enter":
		word, reading := ParseEntry(s.input.Value())
		s.adding = false
		s.input.Reset()
		if word == "" {
			return nil
		}
		repo := s.repo
		return func() tea.Msg {
			item, err := repo.Add(context.Background(), store.VocabularyItem{Word: word, Reading: reading})
			if err != nil {
				return changedMsg{err: fmt.Errorf("add %s: %w", word, err)}
			}
			return changedMsg{flash: "Added " + item.Word}
		}
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd
}

func (s *Screen) handleKey(key string) tea.Cmd {
	s.flash = ""
	switch key {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.items)-1 {
			s.cursor++
		}
	case "a":
		s.adding = true
		return s.input.Init()
	case "d", "delete":
		if len(s.items) == 0 {
			return nil
		}
		item, repo := s.items[s.cursor], s.repo
		return func() tea.Msg {
			err := repo.Delete(context.Background(), item.ID)
			if errors.Is(err, store.ErrNotFound) {
				err = nil
			}
			return changedMsg{flash: "Removed " + item.Word, err: err}
		}
	}
	return nil
}

// ParseEntry splits "word reading" input. The reading is optional.
func ParseEntry(s string) (word, reading string) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], "")
	}
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render(
		fmt.Sprintf("%d words. New sentences use these when the cache runs dry.", len(s.items))))
	b.WriteString("\n\n")

	visible := max(height-8, 1)
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}
	for i := start; i < min(start+visible, len(s.items)); i++ {
		it := s.items[i]
		line := it.Word
		if it.Reading != "" {
			line += "  " + theme.Hint.Render(it.Reading)
		}
		if i == s.cursor && !s.adding {
			b.WriteString(theme.Selected.Render("  ▸ ") + line + "\n")
		} else {
			b.WriteString("    " + line + "\n")
		}
	}

	if s.adding {
		b.WriteString("\n  " + s.input.View() + "\n")
	}
	if s.flash != "" {
		b.WriteString("\n  " + theme.SuccessText.Render(s.flash))
	}
	if s.errMsg != "" {
		b.WriteString("\n  " + theme.ErrorText.Render(s.errMsg))
	}
	return b.String()
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.adding {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Add"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "A", Description: "Add"},
		{Key: "D", Description: "Remove"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}
