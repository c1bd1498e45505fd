// Package prometheus records operational metrics with the Prometheus client
// and serves them over HTTP.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure Recorder implements the interface.
var _ driven.Metrics = (*Recorder)(nil)

// Recorder holds the effortqa metric families.
type Recorder struct {
	ResolvesTotal   *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	FeedbackTotal   *prometheus.CounterVec
	BackendErrors   *prometheus.CounterVec
	SyncItemsTotal  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// Default returns the process-wide recorder registered with the default
// Prometheus registry.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewRecorder(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultRecorder
}

// NewRecorder registers the metric families with reg.
func NewRecorder(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		ResolvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "effortqa_resolves_total",
				Help: "Total number of resolved questions",
			},
			[]string{"state", "strategy"},
		),
		ResolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "effortqa_resolve_duration_seconds",
				Help:    "Question resolution latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to 25s
			},
			[]string{"state"},
		),
		FeedbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "effortqa_feedback_total",
				Help: "Total number of feedback submissions",
			},
			[]string{"polarity", "new", "type_changed"},
		),
		BackendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "effortqa_backend_errors_total",
				Help: "Total number of failed calls to external backends",
			},
			[]string{"backend"},
		),
		SyncItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "effortqa_sync_items_total",
				Help: "Total number of tickets processed by tracker syncs",
			},
			[]string{"kind", "outcome"},
		),
		gatherer: gatherer,
	}
}

// ObserveResolve records one resolved question.
func (r *Recorder) ObserveResolve(state, strategy string, elapsed time.Duration) {
	r.ResolvesTotal.WithLabelValues(state, strategy).Inc()
	r.ResolveDuration.WithLabelValues(state).Observe(elapsed.Seconds())
}

// FeedbackRecorded records one feedback submission.
func (r *Recorder) FeedbackRecorded(polarity string, isNew, typeChanged bool) {
	r.FeedbackTotal.WithLabelValues(polarity, strconv.FormatBool(isNew), strconv.FormatBool(typeChanged)).Inc()
}

// BackendError records a failed backend call.
func (r *Recorder) BackendError(backend string) {
	r.BackendErrors.WithLabelValues(backend).Inc()
}

// SyncItems adds n processed tickets. Zero counts are not recorded.
func (r *Recorder) SyncItems(kind, outcome string, n int) {
	if n <= 0 {
		return
	}
	r.SyncItemsTotal.WithLabelValues(kind, outcome).Add(float64(n))
}

// Handler returns the /metrics HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
