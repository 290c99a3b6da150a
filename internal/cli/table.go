package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/RyanBlaney/sonido-loop/loop"
)

// CandidateRow is one ranked candidate, pre-formatted for display
type CandidateRow struct {
	Rank             int
	Start            string
	End              string
	Length           string
	Score            float64
	NoteDistance     float64
	LoudnessDistance float64
}

// Cells returns the row as table cells
func (r CandidateRow) Cells() []string {
	return []string{
		strconv.Itoa(r.Rank),
		r.Start,
		r.End,
		r.Length,
		fmt.Sprintf("%.2f%%", r.Score*100),
		fmt.Sprintf("%.4f", r.NoteDistance),
		fmt.Sprintf("%.2f dB", r.LoudnessDistance),
	}
}

var candidateHeaders = []string{"#", "Start", "End", "Length", "Score", "Note Δ", "Loudness Δ"}

// CandidateRows formats candidates of track. Positions are shown in samples
// or as mm:ss.mmm.
func CandidateRows(track loop.Track, cands []loop.Candidate, samples bool) []CandidateRow {
	position := func(n int) string {
		if samples {
			return strconv.Itoa(n)
		}
		return loop.FormatTime(track.SamplesToSeconds(n))
	}

	rows := make([]CandidateRow, len(cands))
	for i, c := range cands {
		rows[i] = CandidateRow{
			Rank:             i,
			Start:            position(c.LoopStart),
			End:              position(c.LoopEnd),
			Length:           position(c.Duration()),
			Score:            c.Score,
			NoteDistance:     c.NoteDistance,
			LoudnessDistance: c.LoudnessDistance,
		}
	}
	return rows
}

// RenderCandidates renders rows as a bordered table with the best row highlighted
func RenderCandidates(rows []CandidateRow) string {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.Cells()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers(candidateHeaders...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return style.Bold(true).Foreground(accentColor)
			case row == 0:
				return style.Foreground(successColor)
			case col == 0:
				return style.Foreground(mutedColor)
			}
			return style
		})

	return t.String()
}
