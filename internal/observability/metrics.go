// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the catalog service.
type Metrics struct {
	// Discovery metrics
	TokensDiscovered  *prometheus.CounterVec
	MintsRejected     *prometheus.CounterVec
	TxFetchRetries    prometheus.Counter
	NotificationsSeen prometheus.Counter

	// Enrichment metrics
	TokensEnriched    prometheus.Counter
	TokensDiscarded   *prometheus.CounterVec
	EnrichmentErrors  prometheus.Counter
	DocumentFetches   *prometheus.CounterVec
	DASLookups        *prometheus.CounterVec

	// Market metrics
	ProviderCalls     *prometheus.CounterVec
	ProviderFallbacks prometheus.Counter
	SnapshotsWritten  prometheus.Counter
	PriceAlerts       prometheus.Counter
	QuoteCacheHits    prometheus.Counter

	// Lifecycle metrics
	StatusTransitions *prometheus.CounterVec

	// Holder metrics
	HolderRefreshes prometheus.Counter

	// Queue metrics
	RateQueueDepth prometheus.Gauge

	// Latency metrics
	RPCCallLatency   *prometheus.HistogramVec
	ProviderLatency  *prometheus.HistogramVec
	SweepDuration    *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSweep prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_catalog"
	}

	return &Metrics{
		// Discovery metrics
		TokensDiscovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "tokens_discovered_total",
			Help:      "Total number of new mints recorded by source program",
		}, []string{"source"}),
		MintsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "mints_rejected_total",
			Help:      "Total number of mints rejected by the deny list",
		}, []string{"reason"}),
		TxFetchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "tx_fetch_retries_total",
			Help:      "Total number of transaction fetch retries",
		}),
		NotificationsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "notifications_seen_total",
			Help:      "Total number of log notifications received",
		}),

		// Enrichment metrics
		TokensEnriched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "tokens_enriched_total",
			Help:      "Total number of tokens that received metadata",
		}),
		TokensDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "tokens_discarded_total",
			Help:      "Total number of tokens removed after metadata classification",
		}, []string{"reason"}),
		EnrichmentErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "errors_total",
			Help:      "Total number of per-token enrichment failures",
		}),
		DocumentFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "document_fetches_total",
			Help:      "Total number of off-chain document fetches by outcome",
		}, []string{"outcome"}),
		DASLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "das_lookups_total",
			Help:      "Total number of DAS asset lookups by outcome",
		}, []string{"outcome"}),

		// Market metrics
		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "provider_calls_total",
			Help:      "Total number of market provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "provider_fallbacks_total",
			Help:      "Total number of times the primary provider had no data",
		}),
		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "snapshots_written_total",
			Help:      "Total number of market snapshots appended",
		}),
		PriceAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "price_alerts_total",
			Help:      "Total number of price alerts published",
		}),
		QuoteCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "quote_cache_hits_total",
			Help:      "Total number of quotes served from the cache",
		}),

		// Lifecycle metrics
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "status_transitions_total",
			Help:      "Total number of status transitions applied",
		}, []string{"from", "to"}),

		// Holder metrics
		HolderRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "refreshes_total",
			Help:      "Total number of holder table refreshes",
		}),

		// Queue metrics
		RateQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratequeue",
			Name:      "depth",
			Help:      "Current number of queued RPC and provider calls",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "provider_latency_seconds",
			Help:      "Market provider call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		SweepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep job duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSweep: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sweep_timestamp",
			Help:      "Unix timestamp of the last fully successful sweep",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTokenDiscovered increments the discovery counter for a source program.
func RecordTokenDiscovered(source string) {
	DefaultMetrics.TokensDiscovered.WithLabelValues(source).Inc()
}

// RecordMintRejected increments the deny-list rejection counter.
func RecordMintRejected(reason string) {
	DefaultMetrics.MintsRejected.WithLabelValues(reason).Inc()
}

// RecordTokenEnriched increments the enrichment success counter.
func RecordTokenEnriched() {
	DefaultMetrics.TokensEnriched.Inc()
}

// RecordTokenDiscarded increments the post-enrichment discard counter.
func RecordTokenDiscarded(reason string) {
	DefaultMetrics.TokensDiscarded.WithLabelValues(reason).Inc()
}

// RecordProviderCall records a market provider call outcome.
func RecordProviderCall(provider, outcome string) {
	DefaultMetrics.ProviderCalls.WithLabelValues(provider, outcome).Inc()
}

// RecordSnapshotWritten increments the snapshot counter.
func RecordSnapshotWritten() {
	DefaultMetrics.SnapshotsWritten.Inc()
}

// RecordStatusTransition records a lifecycle transition.
func RecordStatusTransition(from, to string) {
	DefaultMetrics.StatusTransitions.WithLabelValues(from, to).Inc()
}

// UpdateQueueDepth updates the rate queue depth gauge.
func UpdateQueueDepth(depth int) {
	DefaultMetrics.RateQueueDepth.Set(float64(depth))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSweepDuration records a sweep job run.
func RecordSweepDuration(job string, seconds float64) {
	DefaultMetrics.SweepDuration.WithLabelValues(job).Observe(seconds)
}
