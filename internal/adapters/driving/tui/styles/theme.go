// Package styles holds the TUI palette and the lipgloss styles built from it.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
)

// Theme is the colour palette. The defaults are tuned for dark terminals
// read outdoors, so accents stay high-contrast.
type Theme struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
	Bar        lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#4E9F3D"), // leaf green
		Secondary:  lipgloss.Color("#3FA7D6"), // sky
		Background: lipgloss.Color("#1B1F1A"),
		Foreground: lipgloss.Color("#E4E8DC"),
		Muted:      lipgloss.Color("#7D8574"),
		Success:    lipgloss.Color("#8FD14F"),
		Warning:    lipgloss.Color("#F2C14E"), // turmeric
		Error:      lipgloss.Color("#E4572E"),
		Border:     lipgloss.Color("#3C4438"),
		Bar:        lipgloss.Color("#141713"),
	}
}

// Styles are the rendered styles shared by the app and its components.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style

	// Connectivity badges.
	Online  lipgloss.Style
	Offline lipgloss.Style

	Syncing   lipgloss.Style
	Panel     lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style
}

// NewStyles builds styles from theme, falling back to DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	badge := lipgloss.NewStyle().Bold(true).Foreground(theme.Background).Padding(0, 1)

	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary),
		Normal:   lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:    lipgloss.NewStyle().Foreground(theme.Muted),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(theme.Foreground).Background(theme.Primary),
		Error:    lipgloss.NewStyle().Foreground(theme.Error),
		Success:  lipgloss.NewStyle().Foreground(theme.Success),
		Warning:  lipgloss.NewStyle().Foreground(theme.Warning),

		Online:  badge.Background(theme.Success),
		Offline: badge.Background(theme.Warning),

		Syncing: lipgloss.NewStyle().Foreground(theme.Secondary),
		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(1, 2),
		StatusBar: lipgloss.NewStyle().Foreground(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Help:      lipgloss.NewStyle().Foreground(theme.Muted),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Connectivity renders a connectivity badge.
func (s *Styles) Connectivity(online bool) string {
	if online {
		return s.Online.Render("ONLINE")
	}
	return s.Offline.Render("OFFLINE")
}

// State picks the style for a queued record in the given sync state.
func (s *Styles) State(state domain.SyncState) lipgloss.Style {
	switch state {
	case domain.SyncStateFailed:
		return s.Warning
	case domain.SyncStateSyncing:
		return s.Syncing
	case domain.SyncStateSynced:
		return s.Success
	default:
		return s.Normal
	}
}
