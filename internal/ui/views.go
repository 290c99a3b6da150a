package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/sonido-loop/internal/cli"
)

var (
	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F18F01"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DDDDDD"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

// renderPicker renders the header, the visible candidates and the key help
func renderPicker(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(helpStyle.Render("No candidates."))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.offset+m.visibleRows(), len(m.Rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(renderRow(m.Rows[i], i == m.Cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("↑/↓ move • enter select • q quit   %d/%d", m.Cursor+1, len(m.Rows))))
	return b.String()
}

func renderHeader(m Model) string {
	title := cli.TitleStyle.Render(m.Title)
	subtitle := cli.SubtitleStyle.Render(fmt.Sprintf("%d loop candidate(s), best first", len(m.Rows)))
	return title + "\n" + subtitle
}

func renderRow(r cli.CandidateRow, selected bool) string {
	line := fmt.Sprintf("%3d  %s → %s  (%s)  score %6.2f%%  note Δ %.4f  loudness Δ %.2f dB",
		r.Rank, r.Start, r.End, r.Length, r.Score*100, r.NoteDistance, r.LoudnessDistance)
	if selected {
		return cursorStyle.Render("▶ " + line)
	}
	return rowStyle.Render("  " + line)
}
