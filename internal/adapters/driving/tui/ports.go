// Package tui is the interactive ask-and-rate terminal UI.
package tui

import (
	"errors"

	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

var (
	ErrMissingResolver        = errors.New("tui: resolver is required")
	ErrMissingFeedbackService = errors.New("tui: feedback service is required")
)

// Ports are the services the TUI calls. Stats may be nil; the stats view
// then stays empty.
type Ports struct {
	Resolver driving.Resolver
	Feedback driving.FeedbackService
	Stats    driving.StatsService
}

// NewPorts bundles the services.
func NewPorts(resolver driving.Resolver, feedback driving.FeedbackService, stats driving.StatsService) *Ports {
	return &Ports{Resolver: resolver, Feedback: feedback, Stats: stats}
}

// Validate reports the first missing required service.
func (p *Ports) Validate() error {
	switch {
	case p.Resolver == nil:
		return ErrMissingResolver
	case p.Feedback == nil:
		return ErrMissingFeedbackService
	}
	return nil
}
