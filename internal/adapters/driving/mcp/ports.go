// Package mcp serves the effort tools and resources over the Model Context
// Protocol, on stdio or streamable HTTP.
package mcp

import (
	"errors"

	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

var (
	// ErrMissingResolver is returned by NewServer without a resolver.
	ErrMissingResolver = errors.New("mcp: resolver is required")

	// ErrServiceUnavailable is returned by a tool whose port is nil.
	ErrServiceUnavailable = errors.New("mcp: service not configured")
)

// Ports holds the driving ports the server calls. Only Resolver is
// required. A tool backed by a nil port fails with ErrServiceUnavailable
// and a resource backed by one reads as not found.
type Ports struct {
	Resolver driving.Resolver
	Feedback driving.FeedbackService
	Epics    driving.EpicAggregator
	Efforts  driving.EffortService
	Stats    driving.StatsService
	Taxonomy driving.TaxonomyService
}

// Validate reports ErrMissingResolver when p or its resolver is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Resolver == nil {
		return ErrMissingResolver
	}
	return nil
}
