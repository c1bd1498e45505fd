package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func TestTUICmd_Help(t *testing.T) {
	setupMocks(t)

	out, err := run(t, "", "tui", "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "Keys:")
	assert.Contains(t, out, "accept")
	assert.Contains(t, out, "re-ask without sources")
	assert.Contains(t, out, "accumulates the exclusions")
}

func TestKeyTable_OneLinePerBinding(t *testing.T) {
	table := keyTable()

	assert.Contains(t, table, "  enter   ask")
	assert.Contains(t, table, "  q       quit")
	assert.NotContains(t, table, "\n\n")
}

func TestTUIPorts_FromServices(t *testing.T) {
	m := setupMocks(t)

	ports := tuiPorts()

	require.NoError(t, ports.Validate())
	assert.Equal(t, m.resolver, ports.Resolver)
	assert.Equal(t, m.feedback, ports.Feedback)
	assert.Equal(t, m.stats, ports.Stats)
}

func TestTUIPorts_MissingResolver(t *testing.T) {
	setupMocks(t)
	resolver = nil

	assert.ErrorIs(t, tuiPorts().Validate(), tui.ErrMissingResolver)
}

func TestRunTUI_MissingServices(t *testing.T) {
	setupMocks(t)
	feedbackService = nil

	err := runTUI(tuiCmd, nil)

	assert.ErrorIs(t, err, tui.ErrMissingFeedbackService)
}

func TestBackgroundScheduler(t *testing.T) {
	m := setupMocks(t)
	m.settings.scheduler = domain.SchedulerConfig{Enabled: true}

	stop := backgroundScheduler(context.Background())
	require.Eventually(t, func() bool { return m.scheduler.isStarted() }, time.Second, 5*time.Millisecond)
	stop()

	assert.True(t, m.scheduler.stopped)
}

func TestBackgroundScheduler_Disabled(t *testing.T) {
	m := setupMocks(t)
	m.settings.scheduler = domain.SchedulerConfig{Enabled: false}

	backgroundScheduler(context.Background())()

	assert.False(t, m.scheduler.isStarted())
	assert.False(t, m.scheduler.stopped)
}
