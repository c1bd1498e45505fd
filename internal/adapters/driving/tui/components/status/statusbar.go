// Package status renders the one-line bar at the bottom of the TUI.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/styles"
)

// State is what the bar is currently reporting.
type State string

const (
	StateReady    State = "ready"
	StateAsking   State = "asking"
	StateAnswered State = "answered"
	StateRated    State = "rated"
	StateError    State = "error"
	StateHelp     State = "help"
)

// Bar shows the current state on the left and key hints on the right. It
// is passive: the app moves it between states with the transition methods.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	width  int

	state    State
	message  string
	sources  int
	excluded int
	elapsed  time.Duration
}

// NewBar creates a bar in the ready state. Nil arguments use defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, width: 80, state: StateReady}
}

// Ready clears everything.
func (b *Bar) Ready() {
	*b = Bar{styles: b.styles, keymap: b.keymap, width: b.width, state: StateReady}
}

// Asking reports a question in flight. excluded is the number of tickets
// left out by re-asks.
func (b *Bar) Asking(excluded int) {
	b.state, b.message, b.excluded = StateAsking, "", excluded
}

// Answered reports a result with its source count and resolve time.
func (b *Bar) Answered(sources int, elapsed time.Duration) {
	b.state, b.message = StateAnswered, ""
	b.sources, b.elapsed = sources, elapsed
}

// Rated reports recorded feedback.
func (b *Bar) Rated(message string) {
	b.state, b.message = StateRated, message
}

// Failed reports an error.
func (b *Bar) Failed(message string) {
	b.state, b.message = StateError, message
}

// Help marks the help view as open.
func (b *Bar) Help() {
	b.state = StateHelp
}

// Resume returns from help or stats to the answer if there is one.
func (b *Bar) Resume(hasAnswer bool) {
	if hasAnswer {
		b.state, b.message = StateAnswered, ""
		return
	}
	b.state = StateReady
}

func (b *Bar) State() State { return b.state }
func (b *Bar) Message() string { return b.message }
func (b *Bar) Width() int { return b.width }

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// View renders the bar padded to its width.
func (b *Bar) View() string {
	left, right := b.status(), b.hints()
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) status() string {
	st := b.styles
	switch b.state {
	case StateAsking:
		if b.excluded > 0 {
			return st.Muted.Render(fmt.Sprintf("Asking again without %d tickets...", b.excluded))
		}
		return st.Muted.Render("Asking...")
	case StateAnswered:
		text := fmt.Sprintf("%d sources", b.sources)
		if b.elapsed > 0 {
			text += fmt.Sprintf(" in %s", b.elapsed.Round(10*time.Millisecond))
		}
		return st.Normal.Render(text)
	case StateRated:
		return st.Success.Render(orDefault(b.message, "Rated"))
	case StateError:
		if b.message == "" {
			return st.Error.Render("Error")
		}
		return st.Error.Render("Error: " + b.message)
	case StateHelp:
		return st.Normal.Render("Help")
	default:
		return st.Muted.Render("Ready")
	}
}

func (b *Bar) hints() string {
	bindings := b.keymap.ShortHelp()
	if b.state == StateAnswered {
		bindings = b.keymap.AnswerHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		parts = append(parts, hint(kb))
	}
	return b.styles.Muted.Render(strings.Join(parts, " | "))
}

func hint(kb key.Binding) string {
	h := kb.Help()
	return h.Key + ": " + h.Desc
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
