package deck

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/shadowdeck/internal/card"
	"github.com/abhisek/shadowdeck/internal/practice"
	"github.com/abhisek/shadowdeck/internal/sentence"
	"github.com/abhisek/shadowdeck/internal/ui/components"
	"github.com/abhisek/shadowdeck/internal/ui/layout"
	"github.com/abhisek/shadowdeck/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	st := s.state
	head := st.Head()

	var body string
	switch {
	case head == nil && st.Loading:
		body = renderLoading(st.Progress, st.Err, width)
	case st.Blocked():
		body = renderBlocked(st.Err, width)
	case head == nil:
		body = theme.Subtitle.Width(width).Render(
			"No cards yet.\n\nPress R to fetch a batch, or add words to your vocabulary first.")
	default:
		body = s.renderCard(head, width, height)
	}

	if s.flash != "" {
		style := theme.Hint
		if s.flashErr {
			style = theme.ErrorText
		}
		body += "\n\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(s.flash))
	}
	return body
}

func renderLoading(progress int, errMsg string, width int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(theme.Subtitle.Width(width).Render("Preparing cards..."))
	b.WriteString("\n\n")
	bar := components.NewProgressBar("", progress, min(width-8, 50))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
	if errMsg != "" {
		// The timeout hint arrives while the load keeps running.
		b.WriteString("\n\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.ErrorText.Render(errMsg)))
	}
	return b.String()
}

func renderBlocked(errMsg string, width int) string {
	return "\n\n" +
		lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.ErrorText.Render(errMsg)) +
		"\n\n" +
		theme.Subtitle.Width(width).Render("Press R to try again.")
}

func (s *Screen) renderCard(head *card.Card, width, height int) string {
	st := s.state
	var b strings.Builder

	info := theme.Badge.Render(fmt.Sprintf("  %s", head.Level))
	if st.HeadSaved {
		info += "  " + theme.SuccessText.Render("saved")
	}
	right := fmt.Sprintf("form %s  queued %d  done %d", head.DisplayForm, len(st.Cards), st.Consumed)
	if st.Refilling {
		right = "refilling  " + right
	}
	right = theme.Hint.Render(right)
	if pad := width - lipgloss.Width(info) - lipgloss.Width(right) - 2; pad > 0 {
		info += strings.Repeat(" ", pad) + right
	}
	b.WriteString(info + "\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-2, 0))))
	b.WriteString("\n\n")

	cardWidth := min(width-8, 72)
	ruby := components.RenderRuby(head.Furigana(), head.Text(), cardWidth-4)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Card.Width(cardWidth).Render(ruby)))
	b.WriteString("\n")

	if tr := head.Sentence.Translation; tr != "" && !layout.IsCompactHeight(height) {
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Translation.Render(tr)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.renderAudioLine(head, st.Speed)))
	if s.deps.Practice != nil {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, renderPractice(s.deps.Practice.State())))
	}
	if st.Err != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			theme.ErrorText.Render(st.Err)+theme.Hint.Render("  (x to dismiss)")))
	}
	return b.String()
}

func (s *Screen) renderAudioLine(head *card.Card, speed float64) string {
	clip := head.CurrentAudio()
	if clip == nil {
		return theme.Hint.Render("no audio for the " + formName(head.DisplayForm) + " form")
	}
	status := fmt.Sprintf("♪ %.1fs at %.1fx", clip.Duration().Seconds(), speed)
	if s.playing {
		return theme.Badge.Render("▶ playing  ") + theme.Hint.Render(status)
	}
	return theme.Hint.Render(status)
}

func renderPractice(st practice.State) string {
	switch st.Status {
	case practice.StatusRecording:
		return theme.ErrorText.Render("● recording") + theme.Hint.Render("  press r to stop")
	case practice.StatusUploading:
		return theme.Hint.Render("scoring your attempt...")
	case practice.StatusDone:
		score := theme.ScoreStyle(st.Result.Score).Render(fmt.Sprintf("%d/100", st.Result.Score))
		out := score + "  " + theme.Body.Render(st.Result.Feedback)
		if st.Result.Transcript != "" {
			out += "\n" + theme.Hint.Render("heard: "+st.Result.Transcript)
		}
		return out
	case practice.StatusError:
		return theme.ErrorText.Render(st.Err)
	default:
		return theme.Hint.Render("press r to record yourself shadowing")
	}
}

func formName(f sentence.Form) string {
	if f == sentence.FormPolite {
		return "polite"
	}
	return "casual"
}
