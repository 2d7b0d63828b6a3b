package components

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/ui/theme"
)

// RenderRuby lays segments out as pairs of lines, readings above text,
// wrapping to width. Without segments it renders text alone.
func RenderRuby(segs []sentence.FuriganaSegment, text string, width int) string {
	if len(segs) == 0 {
		return lipgloss.NewStyle().Width(width).Render(theme.Sentence.Render(text))
	}

	var rows []string
	var top, bottom strings.Builder
	used := 0
	flush := func() {
		if used == 0 {
			return
		}
		rows = append(rows, theme.Ruby.Render(top.String())+"\n"+theme.Sentence.Render(bottom.String()))
		top.Reset()
		bottom.Reset()
		used = 0
	}

	for _, seg := range segs {
		tw := lipgloss.Width(seg.Text)
		rw := lipgloss.Width(seg.Reading)
		cell := max(tw, rw)
		if used > 0 && used+cell > width {
			flush()
		}
		top.WriteString(seg.Reading + strings.Repeat(" ", cell-rw))
		bottom.WriteString(seg.Text + strings.Repeat(" ", cell-tw))
		used += cell
	}
	flush()
	return strings.Join(rows, "\n")
}
