package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func TestDefaultPalette_StatusColoursDistinct(t *testing.T) {
	p := DefaultPalette()
	roles := map[string]lipgloss.AdaptiveColor{
		"accent": p.Accent, "info": p.Info, "good": p.Good, "caution": p.Caution, "bad": p.Bad,
	}

	seen := make(map[lipgloss.AdaptiveColor]string)
	for name, c := range roles {
		assert.NotEmpty(t, c.Light, name)
		assert.NotEmpty(t, c.Dark, name)
		if other, dup := seen[c]; dup {
			t.Errorf("%s and %s share a colour", name, other)
		}
		seen[c] = name
	}
}

func TestNewStyles_UsesPalette(t *testing.T) {
	p := DefaultPalette()
	p.Accent = lipgloss.AdaptiveColor{Light: "#000001", Dark: "#000002"}

	s := NewStyles(p)

	assert.Equal(t, p, s.Palette())
	assert.Equal(t, p.Accent, s.Title.GetForeground())
	assert.Equal(t, p.Accent, s.Selected.GetBackground())
}

func TestDefaultStyles_Attributes(t *testing.T) {
	s := DefaultStyles()

	assert.True(t, s.Title.GetBold())
	assert.True(t, s.Subtitle.GetBold())
	assert.True(t, s.Help.GetItalic())
	assert.Equal(t, lipgloss.RoundedBorder(), s.Answer.GetBorderStyle())
	assert.Equal(t, lipgloss.RoundedBorder(), s.InputField.GetBorderStyle())
	assert.Equal(t, 1, s.StatusBar.GetPaddingLeft())
}

func TestStyles_StateBadge(t *testing.T) {
	s := DefaultStyles()

	tests := []struct {
		state domain.ResolveState
		label string
	}{
		{domain.StateFeedbackHit, "feedback hit"},
		{domain.StateEpicRollup, "epic rollup"},
		{domain.StateSemanticAnswer, "semantic answer"},
		{domain.StateRejected, "rejected"},
		{domain.StateNoAnswer, "no answer"},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Contains(t, s.StateBadge(tt.state), tt.label)
		})
	}
}
