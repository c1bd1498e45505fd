package services

import (
	"time"

	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// nopMetrics discards every observation.
type nopMetrics struct{}

func (nopMetrics) ObserveResolve(string, string, time.Duration) {}
func (nopMetrics) FeedbackRecorded(string, bool, bool) {}
func (nopMetrics) BackendError(string) {}
func (nopMetrics) SyncItems(string, string, int) {}

func metricsOrNop(m driven.Metrics) driven.Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
