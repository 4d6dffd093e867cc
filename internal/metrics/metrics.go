package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - processing volume
var (
	VersionsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexer_versions_processed_total",
		Help: "Total number of ledger versions processed",
	})

	BatchesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexer_batches_processed_total",
		Help: "Total number of transaction batches processed",
	})

	RecordsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_records_saved_total",
			Help: "Total number of decoded records saved by table",
		},
		[]string{"table"},
	)
)

// Performance metrics - processing speed and latency
var (
	BatchProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "indexer_batch_processing_duration_seconds",
		Help:    "Time taken to decode and persist one batch",
		Buckets: prometheus.DefBuckets,
	})

	DatabaseBatchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "indexer_db_batch_insert_duration_seconds",
		Help:    "Time taken to commit a batch INSERT transaction",
		Buckets: prometheus.DefBuckets,
	})
)

// State metrics - current pipeline state
var (
	WatermarkVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_watermark_version",
		Help: "Highest contiguously completed ledger version",
	})

	PendingIntervals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_pending_intervals",
		Help: "Completed version ranges waiting behind a gap",
	})

	TransactionsPerSecond = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_transactions_per_second",
		Help: "Trailing throughput over the rate window",
	})

	WorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_worker_count",
		Help: "Number of concurrent processor workers",
	})
)

// Error metrics - failures
var (
	SanitizeRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexer_sanitize_retries_total",
		Help: "Batch inserts that fell back to the sanitize-and-retry path",
	})

	ProcessingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_processing_errors_total",
			Help: "Fatal batch processing errors by processor",
		},
		[]string{"processor"},
	)
)
