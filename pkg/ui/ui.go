// Package ui is the interactive journal replay viewer: it steps through a
// recorded session one event at a time, rendering hands, the field, and rule
// state as the game unfolded.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uecdago/uecda-server/pkg/journal"
)

type sessionMsg *journal.Session
type errorMsg error

// Model is the replay viewer state: the loaded session and a cursor into it.
// The cursor points at one event of one game; -1 is the pre-play position
// showing the deal and, when present, the exchange.
type Model struct {
	path    string
	session *journal.Session
	err     error

	game  int
	event int
}

// NewModel creates a viewer for the journal at path. The file is loaded by
// Init, off the UI goroutine.
func NewModel(path string) Model {
	return Model{path: path, event: -1}
}

func loadSessionCmd(path string) tea.Cmd {
	return func() tea.Msg {
		s, err := journal.ReadSessionFile(path)
		if err != nil {
			return errorMsg(err)
		}
		return sessionMsg(s)
	}
}

func (m Model) Init() tea.Cmd {
	return loadSessionCmd(m.path)
}

// events returns the current game's event list, nil while loading.
func (m Model) events() []any {
	if m.session == nil || m.game >= len(m.session.Games) {
		return nil
	}
	return m.session.Games[m.game].Events
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		m.session = msg
		m.game = 0
		m.event = -1
		return m, nil

	case errorMsg:
		m.err = msg
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "right", "l", " ":
			if m.event < len(m.events())-1 {
				m.event++
			}
		case "left", "h":
			if m.event > -1 {
				m.event--
			}
		case "down", "j":
			if m.session != nil && m.game < len(m.session.Games)-1 {
				m.game++
				m.event = -1
			}
		case "up", "k":
			if m.game > 0 {
				m.game--
				m.event = -1
			}
		case "g", "home":
			m.event = -1
		case "G", "end":
			m.event = len(m.events()) - 1
		}
	}
	return m, nil
}

// Run loads the journal at path and drives the viewer until quit.
func Run(path string) error {
	p := tea.NewProgram(NewModel(path), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
