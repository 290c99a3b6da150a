// Package ui provides the Bubbletea loop picker for sonido-loop
package ui

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RyanBlaney/sonido-loop/internal/cli"
)

// ErrNoSelection is returned when the picker is closed without choosing
var ErrNoSelection = errors.New("no loop selected")

// pageSize is the number of rows shown before the terminal size is known
const pageSize = 10

// Model is the Bubbletea model for choosing one ranked candidate
type Model struct {
	Title  string
	Rows   []cli.CandidateRow
	Cursor int
	Chosen int // -1 until a row is confirmed
	Done   bool

	// Terminal dimensions
	Width  int
	Height int

	offset int // first visible row
}

// NewModel creates a picker over rows with the best candidate preselected
func NewModel(title string, rows []cli.CandidateRow) Model {
	return Model{
		Title:  title,
		Rows:   rows,
		Chosen: -1,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses and resizes
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Done = true
			return m, tea.Quit
		case "enter", " ":
			if len(m.Rows) > 0 {
				m.Chosen = m.Cursor
			}
			m.Done = true
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "pgup":
			m.move(-m.visibleRows())
		case "pgdown":
			m.move(m.visibleRows())
		case "home", "g":
			m.move(-len(m.Rows))
		case "end", "G":
			m.move(len(m.Rows))
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.scroll()
	}

	return m, nil
}

// View renders the picker
func (m Model) View() string {
	if m.Done {
		return ""
	}
	return renderPicker(m)
}

// move shifts the cursor by delta rows, clamped to the list
func (m *Model) move(delta int) {
	if len(m.Rows) == 0 {
		return
	}
	m.Cursor = min(max(m.Cursor+delta, 0), len(m.Rows)-1)
	m.scroll()
}

// scroll keeps the cursor inside the visible window
func (m *Model) scroll() {
	visible := m.visibleRows()
	if m.Cursor < m.offset {
		m.offset = m.Cursor
	}
	if m.Cursor >= m.offset+visible {
		m.offset = m.Cursor - visible + 1
	}
	m.offset = max(0, min(m.offset, len(m.Rows)-visible))
}

// visibleRows is how many candidates fit between the header and the help line
func (m Model) visibleRows() int {
	if m.Height == 0 {
		return pageSize
	}
	return max(1, m.Height-6)
}

// Pick runs the picker on the given streams and returns the chosen row index
func Pick(title string, rows []cli.CandidateRow, in io.Reader, out io.Writer) (int, error) {
	p := tea.NewProgram(NewModel(title, rows), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return -1, err
	}

	m, ok := final.(Model)
	if !ok || m.Chosen < 0 {
		return -1, ErrNoSelection
	}
	return m.Chosen, nil
}
