package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the alerting pipeline.
type Metrics struct {
	EventsConsumed  prometheus.Counter
	EventsSkipped   *prometheus.CounterVec // labels: reason={parse_error,ignored_type}
	PipelineRunning prometheus.Gauge

	// Matching metrics.
	TerritoriesEvaluated prometheus.Counter
	GeometryErrors       prometheus.Counter

	// Dispatch metrics.
	AlertsCreated    *prometheus.CounterVec // labels: alert_type={hail,severe}
	DuplicateAlerts  prometheus.Counter
	ChannelSends     *prometheus.CounterVec // labels: channel={email,sms,push}, outcome={success,failure}
	DispatchDuration prometheus.Histogram

	// Batch processing metrics.
	BatchSize prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		EventsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_alert",
			Name:      "events_consumed_total",
			Help:      "Total events read from the feed topic.",
		}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_alert",
			Name:      "events_skipped_total",
			Help:      "Feed events skipped before matching, by reason.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_alert",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		TerritoriesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_alert",
			Name:      "territories_evaluated_total",
			Help:      "Territories that passed the policy gate and reached geometry evaluation.",
		}),
		GeometryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_alert",
			Name:      "geometry_errors_total",
			Help:      "Territories excluded from matching due to degenerate geometry.",
		}),
		AlertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_alert",
			Name:      "alerts_created_total",
			Help:      "Alert records newly created, by alert type.",
		}, []string{"alert_type"}),
		DuplicateAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_alert",
			Name:      "duplicate_alerts_total",
			Help:      "Dispatch attempts that found an alert already recorded for the pair.",
		}),
		ChannelSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_alert",
			Name:      "channel_sends_total",
			Help:      "Notification channel deliveries by channel and outcome.",
		}, []string{"channel", "outcome"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_alert",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of a complete match-and-dispatch pass for one event.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_alert",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from the feed topic.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
	}

	prometheus.MustRegister(
		m.EventsConsumed,
		m.EventsSkipped,
		m.PipelineRunning,
		m.TerritoriesEvaluated,
		m.GeometryErrors,
		m.AlertsCreated,
		m.DuplicateAlerts,
		m.ChannelSends,
		m.DispatchDuration,
		m.BatchSize,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		EventsConsumed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_alert", Name: "events_consumed_total"}),
		EventsSkipped:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "storm_alert", Name: "events_skipped_total"}, []string{"reason"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "storm_alert", Name: "pipeline_running"}),
		TerritoriesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_alert", Name: "territories_evaluated_total"}),
		GeometryErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_alert", Name: "geometry_errors_total"}),
		AlertsCreated:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "storm_alert", Name: "alerts_created_total"}, []string{"alert_type"}),
		DuplicateAlerts:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_alert", Name: "duplicate_alerts_total"}),
		ChannelSends:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "storm_alert", Name: "channel_sends_total"}, []string{"channel", "outcome"}),
		DispatchDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "storm_alert", Name: "dispatch_duration_seconds"}),
		BatchSize:            prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "storm_alert", Name: "batch_size"}),
	}
}
