package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Swap aggregator metrics
	// ============================================
	SwapQuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zap_swap_quote_duration_seconds",
			Help:    "Swap aggregator request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	SwapQuoteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zap_swap_quote_errors_total",
			Help: "Total number of failed swap aggregator requests",
		},
		[]string{"endpoint"},
	)

	// ============================================
	// Attestation service metrics
	// ============================================
	AttestationPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zap_attestation_polls_total",
		Help: "Total number of attestation service poll requests",
	})

	AttestationRetrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zap_attestation_retrieval_duration_seconds",
		Help:    "Time from first poll to a complete attestation",
		Buckets: []float64{5, 15, 30, 60, 120, 180, 300},
	})

	AttestationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zap_attestation_failures_total",
			Help: "Total number of terminal attestation retrieval failures",
		},
		[]string{"reason"},
	)

	// ============================================
	// Batch submission metrics
	// ============================================
	BatchSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zap_batch_submissions_total",
			Help: "Total number of atomic call batches submitted",
		},
		[]string{"network", "kind"},
	)

	BatchStatusPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zap_batch_status_polls_total",
		Help: "Total number of wallet calls-status polls",
	})

	BatchResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zap_batch_resolution_duration_seconds",
		Help:    "Time from batch submission to a resolved transaction hash",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120},
	})

	// ============================================
	// Operation metrics
	// ============================================
	OperationsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zap_operations_started_total",
			Help: "Total number of zap operations started",
		},
		[]string{"kind"},
	)

	OperationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zap_operations_completed_total",
			Help: "Total number of zap operations finished, by outcome",
		},
		[]string{"kind", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zap_operation_duration_seconds",
			Help:    "End-to-end zap operation duration in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 900},
		},
		[]string{"kind"},
	)

	// ============================================
	// Infrastructure metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zap_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zap_nats_events_published_total",
			Help: "Total number of operation lifecycle events published",
		},
		[]string{"phase"},
	)

	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zap_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	ChainRPCStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zap_chain_rpc_status",
			Help: "Per-network RPC endpoint status (1=reachable, 0=unreachable)",
		},
		[]string{"network"},
	)
)
