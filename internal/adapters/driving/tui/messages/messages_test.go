package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewType_String(t *testing.T) {
	for v, want := range map[ViewType]string{
		ViewAsk:      "ask",
		ViewStats:    "stats",
		ViewHelp:     "help",
		ViewType(-1): "unknown",
		ViewType(99): "unknown",
	} {
		assert.Equal(t, want, v.String())
	}

	var zero ViewType
	assert.Equal(t, ViewAsk, zero)
}
