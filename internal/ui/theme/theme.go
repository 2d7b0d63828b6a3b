package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette: ink on washi, with an indigo accent.
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#2DD4BF") // Teal
	Accent    = lipgloss.Color("#F472B6") // Sakura
	Success   = lipgloss.Color("#22C55E")
	Warning   = lipgloss.Color("#F59E0B")
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	// Sentence is the Japanese text on a card.
	Sentence = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true)

	// Ruby is the furigana line above the sentence.
	Ruby = lipgloss.NewStyle().
		Foreground(Secondary)

	Translation = lipgloss.NewStyle().
			Foreground(TextDim).
			Italic(true)
)

var (
	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Badge = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SuccessText = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)
)

// ScoreStyle colors a 0-100 practice score.
func ScoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return SuccessText
	case score >= 50:
		return lipgloss.NewStyle().Foreground(Warning).Bold(true)
	default:
		return ErrorText
	}
}
