// Package home is the start screen: current settings, a few counts, and
// the main menu.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/shadowdeck/internal/router"
	"github.com/abhisek/shadowdeck/internal/screen"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/ui/components"
	"github.com/abhisek/shadowdeck/internal/ui/theme"
)

const banner = `┏━┓╻ ╻┏━┓╺┳┓┏━┓╻ ╻╺┳┓┏━╸┏━╸╻┏
┗━┓┣━┫┣━┫ ┃┃┃ ┃┃╻┃ ┃┃┣╸ ┃  ┣┻┓
┗━┛╹ ╹╹ ╹╺┻┛┗━┛┗┻┛╺┻┛┗━╸┗━╸╹ ╹`

// Stats is the dashboard line under the banner.
type Stats struct {
	Level  sentence.Level
	Speed  float64
	Words  int
	Cached int // unused cached sentences at Level
}

// Options wires the home screen to the rest of the app.
type Options struct {
	OpenDeck    func() screen.Screen
	OpenLibrary func() screen.Screen
	OpenVocab   func() screen.Screen
	LoadStats   func(ctx context.Context) (Stats, error)
}

type statsMsg struct {
	stats Stats
	err   error
}

// Screen is the home screen.
type Screen struct {
	opts  Options
	menu  components.Menu
	stats *Stats
}

var _ screen.Screen = (*Screen)(nil)

// New creates the home screen.
func New(opts Options) *Screen {
	push := func(open func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			return func() tea.Msg { return router.PushScreenMsg{Screen: open()} }
		}
	}
	items := []components.MenuItem{
		{Label: "Shadow", Hint: "listen, repeat, record", Action: push(opts.OpenDeck), Disabled: opts.OpenDeck == nil},
		{Label: "Library", Hint: "saved cards", Action: push(opts.OpenLibrary), Disabled: opts.OpenLibrary == nil},
		{Label: "Vocabulary", Hint: "words to weave in", Action: push(opts.OpenVocab), Disabled: opts.OpenVocab == nil},
		{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	}
	return &Screen{opts: opts, menu: components.NewMenu(items)}
}

func (h *Screen) Title() string { return "Home" }

func (h *Screen) Init() tea.Cmd {
	return h.refresh()
}

func (h *Screen) refresh() tea.Cmd {
	load := h.opts.LoadStats
	if load == nil {
		return nil
	}
	return func() tea.Msg {
		st, err := load(context.Background())
		return statsMsg{stats: st, err: err}
	}
}

func (h *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case statsMsg:
		if msg.err == nil {
			h.stats = &msg.stats
		}
		return h, nil
	case tea.KeyMsg:
		if msg.String() == "q" {
			return h, tea.Quit
		}
		var cmd tea.Cmd
		h.menu, cmd = h.menu.Update(msg)
		// Counts may have changed on the screen being opened.
		return h, tea.Batch(cmd, h.refresh())
	}
	return h, nil
}

func (h *Screen) View(width, height int) string {
	cw := min(max(width-8, 30), 60)

	sections := []string{
		theme.Title.Width(cw).Render(banner),
		theme.Subtitle.Width(cw).Render("Japanese shadowing practice"),
	}
	if h.stats != nil {
		sections = append(sections, renderStats(*h.stats, cw))
	}
	sections = append(sections, lipgloss.NewStyle().Width(cw).Render(h.menu.View()))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		strings.Join(sections, "\n\n"))
}

func renderStats(st Stats, cw int) string {
	parts := []string{
		theme.Badge.Render(string(st.Level)),
		theme.Body.Render(fmt.Sprintf("%.1fx", st.Speed)),
		theme.Hint.Render(fmt.Sprintf("%d words", st.Words)),
		theme.Hint.Render(fmt.Sprintf("%d cached", st.Cached)),
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render(strings.Join(parts, "   "))
}
