// Package messages holds the tea.Msg types the TUI commands send back to
// the app model.
package messages

import (
	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

// AnswerReady carries a resolve result. The resolver never returns an
// error; failures are reported in Result.Err.
type AnswerReady struct {
	Result *domain.ResolveResult
}

// FeedbackRecorded reports the outcome of an accept or reject.
type FeedbackRecorded struct {
	Polarity domain.Polarity
	Outcome  *domain.FeedbackOutcome
	Err      error
}

type StatsLoaded struct {
	Overview *driving.Overview
	Err      error
}

type ViewChanged struct {
	View ViewType
}

type ErrorOccurred struct {
	Err error
}

// ViewType selects the screen. The zero value is the ask view.
type ViewType int

const (
	ViewAsk ViewType = iota
	ViewStats
	ViewHelp
)

var viewNames = [...]string{ViewAsk: "ask", ViewStats: "stats", ViewHelp: "help"}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}
