package cli

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/effortqa/internal/logger"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Long = `Ask questions interactively, read the answer and the tickets it cites,
then accept or reject it. An accepted answer is served directly the next
time the same question is asked; re-asking drops the cited tickets and
accumulates the exclusions until a new question is typed.

Scheduled tasks run in the background while the UI is open.

Keys:
` + keyTable()
	rootCmd.AddCommand(tuiCmd)
}

// keyTable lists the TUI bindings in help-view order.
func keyTable() string {
	var b strings.Builder
	for _, group := range keymap.DefaultKeyMap().FullHelp() {
		for _, kb := range group {
			h := kb.Help()
			fmt.Fprintf(&b, "  %-7s %s\n", h.Key, h.Desc)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func tuiPorts() *tui.Ports {
	return tui.NewPorts(resolver, feedbackService, statsService)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tui panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("TUI crashed: %v", r)
		}
	}()

	app, err := tui.NewApp(tuiPorts())
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stop := backgroundScheduler(ctx)
	defer stop()

	// Logging to stderr would corrupt the alternate screen.
	defer logger.Redirect(io.Discard)()

	if err := app.WithContext(ctx).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// backgroundScheduler starts the scheduler for long-running commands when
// it is enabled, returning a func that stops it.
func backgroundScheduler(ctx context.Context) (stop func()) {
	if scheduler == nil || settingsService == nil || !settingsService.GetSchedulerConfig().Enabled {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("scheduler stopped: %v", err)
		}
	}()

	return func() {
		cancel()
		if err := scheduler.Stop(); err != nil {
			logger.Warn("scheduler stop: %v", err)
		}
		<-done
	}
}
