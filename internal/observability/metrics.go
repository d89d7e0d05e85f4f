package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rescue_triage"

// Metrics holds the Prometheus counters, histograms, and gauges for the triage service.
type Metrics struct {
	// Roster loading.
	RosterRecordsLoaded  prometheus.Counter
	RosterRecordsDropped *prometheus.CounterVec // labels: reason={coordinates}
	RosterLoads          *prometheus.CounterVec // labels: source, outcome={ok,no_data}

	// Ranking.
	RankingRuns     *prometheus.CounterVec // labels: provider={remote,local}
	RankingDuration prometheus.Histogram
	RemoteScoring   *prometheus.CounterVec // labels: outcome={success,error}
	RemoteDuration  prometheus.Histogram

	// Snapshot state.
	SnapshotRefreshes   *prometheus.CounterVec // labels: outcome={ok,no_data}
	SnapshotIndividuals prometheus.Gauge
	SnapshotCritical    prometheus.Gauge

	// Blob storage.
	BlobCache    *prometheus.CounterVec // labels: result={hit,miss}
	BlobFetches  *prometheus.CounterVec // labels: outcome={success,error}
	BlobDuration prometheus.Histogram

	// Assistant.
	AssistantRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,config_missing}
	AssistantDuration *prometheus.HistogramVec // labels: provider
	ChatHistoryTurns  prometheus.Histogram

	// Sessions and alerts.
	SessionsActive   prometheus.Gauge
	AlertsPublished  prometheus.Counter
	AlertPublishErrs prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RosterRecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_records_loaded_total",
			Help:      "Total roster records normalized into individuals.",
		}),
		RosterRecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_records_dropped_total",
			Help:      "Roster records discarded during normalization, by reason.",
		}, []string{"reason"}),
		RosterLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_loads_total",
			Help:      "Roster load attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		RankingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_runs_total",
			Help:      "Ranking runs by the score provider that produced the result.",
		}, []string{"provider"}),
		RankingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Duration of a complete ranking run including any remote call.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RemoteScoring: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_scoring_requests_total",
			Help:      "Remote ranking service requests by outcome.",
		}, []string{"outcome"}),
		RemoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_scoring_duration_seconds",
			Help:      "Remote ranking service request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SnapshotRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_refreshes_total",
			Help:      "Ranked snapshot rebuilds by outcome.",
		}, []string{"outcome"}),
		SnapshotIndividuals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_individuals",
			Help:      "Individuals in the current ranked snapshot.",
		}),
		SnapshotCritical: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_critical_individuals",
			Help:      "CRITICAL individuals in the current ranked snapshot.",
		}),
		BlobCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_cache_total",
			Help:      "Blob cache lookups by result.",
		}, []string{"result"}),
		BlobFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_fetches_total",
			Help:      "Object storage downloads by outcome.",
		}, []string{"outcome"}),
		BlobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "blob_fetch_duration_seconds",
			Help:      "Object storage download duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		AssistantRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_requests_total",
			Help:      "Assistant completions by provider and outcome.",
		}, []string{"provider", "outcome"}),
		AssistantDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assistant_duration_seconds",
			Help:      "Assistant completion duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		ChatHistoryTurns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_history_turns",
			Help:      "Number of turns in a session history when a new message is answered.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200, 500},
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open dashboard sessions.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Critical alerts written to the alert topic.",
		}),
		AlertPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_publish_errors_total",
			Help:      "Failed attempts to write critical alerts.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RosterRecordsLoaded,
		m.RosterRecordsDropped,
		m.RosterLoads,
		m.RankingRuns,
		m.RankingDuration,
		m.RemoteScoring,
		m.RemoteDuration,
		m.SnapshotRefreshes,
		m.SnapshotIndividuals,
		m.SnapshotCritical,
		m.BlobCache,
		m.BlobFetches,
		m.BlobDuration,
		m.AssistantRequests,
		m.AssistantDuration,
		m.ChatHistoryTurns,
		m.SessionsActive,
		m.AlertsPublished,
		m.AlertPublishErrs,
	}
}
