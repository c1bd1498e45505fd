// Package styles holds the TUI palette and the lipgloss styles built from it.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// Palette maps roles to colours. AdaptiveColor picks the Light or Dark
// value from the terminal background.
type Palette struct {
	Accent  lipgloss.AdaptiveColor
	Info    lipgloss.AdaptiveColor
	Text    lipgloss.AdaptiveColor
	Subtle  lipgloss.AdaptiveColor
	Surface lipgloss.AdaptiveColor
	Frame   lipgloss.AdaptiveColor
	Good    lipgloss.AdaptiveColor
	Caution lipgloss.AdaptiveColor
	Bad     lipgloss.AdaptiveColor
}

// DefaultPalette is violet and teal on either background.
func DefaultPalette() Palette {
	return Palette{
		Accent:  lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"},
		Info:    lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"},
		Text:    lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
		Subtle:  lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		Surface: lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#111827"},
		Frame:   lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"},
		Good:    lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#86EFAC"},
		Caution: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"},
		Bad:     lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"},
	}
}

// Styles are the rendered building blocks shared by the TUI components.
type Styles struct {
	palette Palette

	Title, Subtitle, Normal, Muted, Selected lipgloss.Style
	Error, Success, Warning                  lipgloss.Style
	InputField, StatusBar, Help, Border      lipgloss.Style
	Answer, Badge                            lipgloss.Style
}

// NewStyles builds styles from p.
func NewStyles(p Palette) *Styles {
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	framed := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(c)
	}

	return &Styles{
		palette:    p,
		Title:      fg(p.Accent).Bold(true),
		Subtitle:   fg(p.Info).Bold(true),
		Normal:     fg(p.Text),
		Muted:      fg(p.Subtle),
		Selected:   fg(p.Surface).Background(p.Accent).Bold(true),
		Error:      fg(p.Bad),
		Success:    fg(p.Good),
		Warning:    fg(p.Caution),
		InputField: framed(p.Frame).Padding(0, 1),
		StatusBar:  fg(p.Subtle).Background(p.Surface).Padding(0, 1),
		Help:       fg(p.Subtle).Italic(true),
		Border:     framed(p.Frame),
		Answer:     framed(p.Info).Foreground(p.Text).Padding(0, 1),
		Badge:      fg(p.Surface).Bold(true).Padding(0, 1),
	}
}

// DefaultStyles returns styles for DefaultPalette.
func DefaultStyles() *Styles {
	return NewStyles(DefaultPalette())
}

// Palette returns the colours the styles were built from.
func (s *Styles) Palette() Palette {
	return s.palette
}

// StateBadge renders a resolve state as a coloured tag: green for a
// feedback hit, teal for an epic roll-up, violet for a fresh answer, red
// for a rejected one and amber otherwise.
func (s *Styles) StateBadge(state domain.ResolveState) string {
	bg := s.palette.Caution
	switch state {
	case domain.StateFeedbackHit:
		bg = s.palette.Good
	case domain.StateEpicRollup:
		bg = s.palette.Info
	case domain.StateSemanticAnswer:
		bg = s.palette.Accent
	case domain.StateRejected:
		bg = s.palette.Bad
	}
	return s.Badge.Background(bg).Render(strings.ReplaceAll(state.String(), "_", " "))
}
