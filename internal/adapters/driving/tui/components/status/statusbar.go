// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/herbtrace/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady   State = "ready"
	StateSyncing State = "syncing"
	StateError   State = "error"
	StateHelp    State = "help"
	StateQueue   State = "queue"
)

// Bar displays connectivity, the snapshot summary and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	message  string
	snapshot domain.SyncSnapshot
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

// renderLeft renders connectivity and the current message.
func (s *Bar) renderLeft() string {
	badge := s.styles.Connectivity(s.snapshot.Connectivity.IsOnline())

	switch s.state {
	case StateSyncing:
		return badge + " " + s.styles.Syncing.Render(s.snapshot.Summary())
	case StateError:
		if s.message != "" {
			return badge + " " + s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return badge + " " + s.styles.Error.Render("Error")
	case StateHelp:
		return badge + " " + s.styles.Normal.Render("Help")
	case StateReady, StateQueue:
	}

	if s.message != "" {
		return badge + " " + s.styles.Normal.Render(s.message)
	}
	summary := s.snapshot.Summary()
	if s.snapshot.ExhaustedCount > 0 {
		return badge + " " + s.styles.Error.Render(summary)
	}
	return badge + " " + s.styles.Muted.Render(summary)
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateQueue {
		bindings = s.keymap.QueueHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message shown instead of the summary.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetSnapshot sets the snapshot the bar summarises.
func (s *Bar) SetSnapshot(snap domain.SyncSnapshot) {
	s.snapshot = snap
	if snap.ActiveSyncInProgress {
		s.state = StateSyncing
	} else if s.state == StateSyncing {
		s.state = StateReady
	}
}

// Snapshot returns the current snapshot.
func (s *Bar) Snapshot() domain.SyncSnapshot {
	return s.snapshot
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}
