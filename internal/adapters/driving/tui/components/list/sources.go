// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// SourceList displays the sources an answer cited in a navigable list.
type SourceList struct {
	sources  []domain.SourceRef
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *SourceList) View() string {
	if len(l.sources) == 0 {
		return l.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(l.sources)*2+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.sources))), "")

	// Each source takes two lines.
	visibleCount := (l.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if l.selected >= visibleCount {
		start = l.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(l.sources) {
		end = len(l.sources)
	}

	for i := start; i < end; i++ {
		lines = append(lines, l.renderSource(i, &l.sources[i]))
	}

	return strings.Join(lines, "\n")
}

func (l *SourceList) renderSource(index int, src *domain.SourceRef) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	label := src.TicketID
	if label == "" {
		label = "(" + src.Source + ")"
	}
	header := fmt.Sprintf("%s%s", indicator, label)
	if src.TicketID != "" {
		header += "  " + src.Source
	}

	var headerLine string
	if index == l.selected {
		headerLine = l.styles.Selected.Render(header)
	} else {
		headerLine = l.styles.Normal.Render(header)
	}

	snippet := clip(src.Snippet, l.width-6)
	return headerLine + "\n" + l.styles.Muted.Render("    "+snippet)
}

func clip(s string, n int) string {
	if n < 20 {
		n = 20
	}
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// SetSources replaces the list contents and resets the selection.
func (l *SourceList) SetSources(sources []domain.SourceRef) {
	l.sources = sources
	l.selected = 0
}

// Sources returns the current sources.
func (l *SourceList) Sources() []domain.SourceRef {
	return l.sources
}

// TicketIDs returns the ticket IDs of every listed source.
func (l *SourceList) TicketIDs() []string {
	ids := make([]string, 0, len(l.sources))
	for _, s := range l.sources {
		if s.TicketID != "" {
			ids = append(ids, s.TicketID)
		}
	}
	return ids
}

// Selected returns the index of the selected source.
func (l *SourceList) Selected() int {
	return l.selected
}

// SelectedSource returns the selected source, or nil if none.
func (l *SourceList) SelectedSource() *domain.SourceRef {
	if l.selected < 0 || l.selected >= len(l.sources) {
		return nil
	}
	return &l.sources[l.selected]
}

// MoveUp moves selection up.
func (l *SourceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *SourceList) MoveDown() {
	if l.selected < len(l.sources)-1 {
		l.selected++
	}
}

// SetDimensions sets the list dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of sources.
func (l *SourceList) Count() int {
	return len(l.sources)
}
