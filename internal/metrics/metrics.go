package metrics

import (
	"net/http"

	"github.com/BearBump/BrickSync/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the reconciler metrics. It implements the reconciler's
// run observer.
type Registry struct {
	reg *prometheus.Registry

	Runs           *prometheus.CounterVec // result: ok, degraded, failed
	RunDuration    prometheus.Histogram
	SourcesSkipped *prometheus.CounterVec // source
	Orders         *prometheus.CounterVec // outcome
	LastSuccess    prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bricksync_runs_total",
		Help: "Reconciliation runs by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bricksync_run_duration_seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bricksync_source_skipped_total",
		Help: "Runs in which a platform listing failed.",
	}, []string{"source"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bricksync_orders_total",
		Help: "Per-order outcomes across all runs.",
	}, []string{"outcome"})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bricksync_last_success_timestamp_seconds",
	})

	r.MustRegister(runs, duration, skipped, orders, lastSuccess)
	return &Registry{
		reg:            r,
		Runs:           runs,
		RunDuration:    duration,
		SourcesSkipped: skipped,
		Orders:         orders,
		LastSuccess:    lastSuccess,
	}
}

func (r *Registry) ObserveRun(rep models.RunReport, err error) {
	switch {
	case err != nil:
		r.Runs.WithLabelValues("failed").Inc()
		return
	case rep.Degraded():
		r.Runs.WithLabelValues("degraded").Inc()
	default:
		r.Runs.WithLabelValues("ok").Inc()
		r.LastSuccess.Set(float64(rep.FinishedAt.Unix()))
	}
	r.RunDuration.Observe(rep.Duration().Seconds())
	for _, s := range rep.SkippedSources {
		r.SourcesSkipped.WithLabelValues(s.String()).Inc()
	}

	for outcome, n := range map[string]int{
		"entry_skipped":     rep.SkippedEntries,
		"dropped":           rep.Dropped,
		"created":           rep.Created,
		"already_synced":    rep.AlreadySynced,
		"create_failed":     rep.CreateFailed,
		"marked_shipped":    rep.MarkedShipped,
		"stale":             rep.Stale,
		"ship_failed":       rep.ShipFailed,
		"tracking_attached": rep.TrackingAttached,
		"tracking_failed":   rep.TrackingFailed,
	} {
		if n > 0 {
			r.Orders.WithLabelValues(outcome).Add(float64(n))
		}
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
