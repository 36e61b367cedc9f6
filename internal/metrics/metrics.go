// Package metrics tracks per-run pipeline counters with Prometheus collectors.
//
// Each run owns a private registry so repeated runs (and tests) never collide
// on registration. The registry can be flushed to a node_exporter textfile so
// cron-driven runs remain observable.
package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "refcal"

// Metrics holds the collectors for a single pipeline run.
type Metrics struct {
	registry *prometheus.Registry

	// Rows by listing (matches, addresses, referees) and outcome
	// (parsed, skipped, filtered, degraded).
	Rows *prometheus.CounterVec

	Duplicates      prometheus.Counter
	Rejected        prometheus.Counter
	EventsWritten   prometheus.Gauge
	LastRunSuccess  prometheus.Gauge
	LastRunUnixTime prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "HTML table rows by listing and outcome.",
		}, []string{"listing", "outcome"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_records_total",
			Help:      "Match records collapsed by deduplication.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_records_total",
			Help:      "Match records rejected by normalization.",
		}),
		EventsWritten: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calendar_events",
			Help:      "Events written to the last calendar file.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run produced a calendar, 0 otherwise.",
		}),
		LastRunUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last run.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.Rows,
		m.Duplicates,
		m.Rejected,
		m.EventsWritten,
		m.LastRunSuccess,
		m.LastRunUnixTime,
		m.StageDuration,
	)

	return m
}

// Registry exposes the underlying registry as a Gatherer.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AddRows adds n rows for listing/outcome. Zero is a no-op so unused series stay absent.
func (m *Metrics) AddRows(listing, outcome string, n int) {
	if n <= 0 {
		return
	}
	m.Rows.WithLabelValues(listing, outcome).Add(float64(n))
}

// ObserveStage records how long a stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time, now time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(now.Sub(start).Seconds())
}

// MarkRun records the outcome and time of the run.
func (m *Metrics) MarkRun(success bool, at time.Time) {
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
	m.LastRunUnixTime.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "writing metrics textfile %s", path)
	}
	return nil
}
