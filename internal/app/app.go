// Package app hosts the root Bubble Tea model: it owns the screen router
// and draws the header and footer around the active screen.
package app

import (
	"context"
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/shadowdeck/internal/practice"
	"github.com/abhisek/shadowdeck/internal/queue"
	"github.com/abhisek/shadowdeck/internal/router"
	"github.com/abhisek/shadowdeck/internal/screen"
	"github.com/abhisek/shadowdeck/internal/screens/deck"
	"github.com/abhisek/shadowdeck/internal/screens/history"
	"github.com/abhisek/shadowdeck/internal/screens/home"
	"github.com/abhisek/shadowdeck/internal/screens/library"
	"github.com/abhisek/shadowdeck/internal/screens/vocab"
	"github.com/abhisek/shadowdeck/internal/sentencecache"
	"github.com/abhisek/shadowdeck/internal/speech"
	"github.com/abhisek/shadowdeck/internal/store"
	"github.com/abhisek/shadowdeck/internal/ui/layout"
)

// Options are the app's collaborators. Only Queue is required.
type Options struct {
	Queue      *queue.Manager
	Vocabulary store.VocabularyRepo
	Library    store.SavedCardRepo
	Attempts   store.PracticeRepo
	Cache      *sentencecache.Cache
	Practice   *practice.Tracker
	Player     speech.Player
	Logger     *slog.Logger
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router   *router.Router
	settings func() (string, float64)
	width    int
	height   int
}

func newAppModel(opts Options) AppModel {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return AppModel{
		router: router.New(newHome(opts)),
		settings: func() (string, float64) {
			level, speed := opts.Queue.Settings()
			return string(level), speed
		},
	}
}

// newHome builds the home screen and the factories for everything it
// can open.
func newHome(opts Options) screen.Screen {
	deckDeps := deck.Deps{Queue: opts.Queue, Player: opts.Player, Logger: opts.Logger}
	if opts.Practice != nil {
		deckDeps.Practice = opts.Practice
	}
	openDeck := func() screen.Screen { return deck.New(deckDeps, true) }

	hopts := home.Options{
		OpenDeck:  openDeck,
		LoadStats: statsLoader(opts),
	}
	if opts.Library != nil {
		var scores library.Scores
		if opts.Attempts != nil {
			scores = opts.Attempts
		}
		hopts.OpenLibrary = func() screen.Screen {
			lib := library.New(opts.Library, scores, opts.Queue, func() screen.Screen {
				return deck.New(deckDeps, false)
			})
			if opts.Attempts != nil {
				lib.WithHistory(func(c store.SavedCard) screen.Screen { return history.New(opts.Attempts, c) })
			}
			return lib
		}
	}
	if opts.Vocabulary != nil {
		hopts.OpenVocab = func() screen.Screen { return vocab.New(opts.Vocabulary) }
	}
	return home.New(hopts)
}

func statsLoader(opts Options) func(ctx context.Context) (home.Stats, error) {
	return func(ctx context.Context) (home.Stats, error) {
		level, speed := opts.Queue.Settings()
		st := home.Stats{Level: level, Speed: speed}
		if opts.Vocabulary != nil {
			n, err := opts.Vocabulary.Count(ctx)
			if err != nil {
				return st, err
			}
			st.Words = n
		}
		if opts.Cache != nil {
			levels, err := opts.Cache.Stats(ctx)
			if err != nil {
				return st, err
			}
			for _, ls := range levels {
				if ls.Level == level {
					st.Cached = ls.Unused
				}
			}
		}
		return st, nil
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if c, ok := m.router.Active().(screen.InputCapturer); ok && c.CapturesInput() {
			break
		}
		if msg.String() == "esc" {
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	return m, m.router.Update(msg)
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	title := ""
	if active := m.router.Active(); active != nil {
		title = active.Title()
	}
	level, speed := m.settings()
	header := layout.RenderHeader(title, fmt.Sprintf("%s  %.1fx", level, speed), m.width)

	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if p, ok := m.router.Active().(screen.KeyHintProvider); ok {
		if h := p.KeyHints(); len(h) > 0 {
			hints = h
		}
	} else if m.router.Depth() > 1 {
		hints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	footer := layout.RenderFooter(hints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the TUI and blocks until the user quits.
func Run(opts Options) error {
	m := newAppModel(opts)
	defer m.router.Close()

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
