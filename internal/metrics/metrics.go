package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pfm"

var (
	// Coordinator
	BlocksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "coordinator",
		Name:      "blocks_processed_total",
		Help:      "Total block events processed",
	}, []string{"chain", "network"})

	TransactionsObserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "coordinator",
		Name:      "transactions_observed_total",
		Help:      "Total transaction events observed",
	}, []string{"chain", "network"})

	WatchedTransactionsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "coordinator",
		Name:      "watched_transactions_stored_total",
		Help:      "Total watched-protocol transactions stored",
	}, []string{"chain", "network"})

	HandleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "coordinator",
		Name:      "handle_errors_total",
		Help:      "Total event handling errors",
	}, []string{"chain", "network", "event"})

	BlockHandleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "coordinator",
		Name:      "block_handle_duration_seconds",
		Help:      "Block event handling duration",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"chain", "network"})

	// Convergence
	ConvergenceMode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "convergence",
		Name:      "mode",
		Help:      "Base fee convergence mode (0=UNCERTAIN, 1=CONFIDENT)",
	}, []string{"chain", "network"})

	ConvergenceWinStreak = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "convergence",
		Name:      "win_streak",
		Help:      "Current base fee win streak",
	}, []string{"chain", "network"})

	ConvergencePromotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "convergence",
		Name:      "promotions_total",
		Help:      "Total transitions into confident mode",
	}, []string{"chain", "network"})

	LatestBaseFee = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "convergence",
		Name:      "latest_base_fee_wei",
		Help:      "Most recently resolved block base fee",
	}, []string{"chain", "network"})

	// Classifier
	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "findings_total",
		Help:      "Total priority fee findings",
	}, []string{"chain", "network", "severity", "class"})

	UnclassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "classifier",
		Name:      "unclassified_total",
		Help:      "Watched transactions stored without classification",
	}, []string{"chain", "network", "reason"})

	// Forecast
	ForecastFillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "forecast",
		Name:      "fills_total",
		Help:      "Total forecast fills by outcome",
	}, []string{"chain", "network", "result"})

	ForecastFillLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "forecast",
		Name:      "fill_duration_seconds",
		Help:      "Forecast fill duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"chain", "network"})

	ForecastCoalescedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "forecast",
		Name:      "coalesced_total",
		Help:      "Forecast requests that joined an in-flight fill",
	}, []string{"chain", "network"})

	ForecastBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "forecast",
		Name:      "breaker_state",
		Help:      "Forecast backend circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"backend"})

	// Retention
	RetentionSweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "sweeps_total",
		Help:      "Total retention sweeps",
	}, []string{"chain", "network"})

	RetentionDeletedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "deleted_rows_total",
		Help:      "Rows deleted by retention sweeps",
	}, []string{"chain", "network", "table"})

	HistoryCapacity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "retention",
		Name:      "history_capacity_blocks",
		Help:      "Stored block count gating forecasts",
	}, []string{"chain", "network"})

	// Feed
	FeedBlocksFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "blocks_fetched_total",
		Help:      "Total blocks fetched from chain RPC",
	}, []string{"chain", "network"})

	FeedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "errors_total",
		Help:      "Total feed errors after retry exhaustion",
	}, []string{"chain", "network"})

	FeedFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "fetch_duration_seconds",
		Help:      "Block fetch duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"chain", "network"})

	FeedHeadLag = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "feed",
		Name:      "head_lag_blocks",
		Help:      "Blocks between chain head and the last delivered block",
	}, []string{"chain", "network"})

	// RPC rate limiter
	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total times RPC calls waited for rate limiter",
	}, []string{"chain"})

	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total RPC calls by method and outcome",
	}, []string{"chain", "method", "status"})

	// Discontinuities
	DiscontinuitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reorg_detector",
		Name:      "discontinuities_total",
		Help:      "Total block stream discontinuities",
	}, []string{"chain", "network", "reason"})

	// Pipeline health
	PipelineHealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "health_status",
		Help:      "Pipeline health status (0=UNKNOWN, 1=HEALTHY, 2=UNHEALTHY, 3=DEGRADED)",
	}, []string{"chain", "network"})

	PipelineConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "consecutive_failures",
		Help:      "Number of consecutive pipeline failures",
	}, []string{"chain", "network"})

	// Database pool
	DBPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "postgres",
		Name:      "db_pool_open",
		Help:      "Current number of open PostgreSQL connections in the pool",
	})

	DBPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "postgres",
		Name:      "db_pool_in_use",
		Help:      "Current number of in-use PostgreSQL connections in the pool",
	})

	DBPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "postgres",
		Name:      "db_pool_idle",
		Help:      "Current number of idle PostgreSQL connections in the pool",
	})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "failed_total",
		Help:      "Total alerts that failed to send",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})
)
