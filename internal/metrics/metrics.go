package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks classified records by the phase that claimed them.
	RecordsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeproducts_records_classified_total",
			Help: "Total number of records classified (by structure phase).",
		},
		[]string{"phase"},
	)

	// Tracks low-confidence records by reason code.
	LowConfidenceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeproducts_low_confidence_total",
			Help: "Number of records flagged low-confidence (by reason code).",
		},
		[]string{"reason"},
	)

	// Distribution of products per record.
	ProductsPerRecord = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feeproducts_products_per_record",
			Help:    "Number of products inferred for each record.",
			Buckets: prometheus.LinearBuckets(0, 1, 9),
		},
	)

	// Measures how long a whole input file takes to process.
	FileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feeproducts_file_duration_seconds",
			Help:    "Duration of input file processing in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"format"},
	)

	// Tracks NATS messages processed by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages processed.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks records consumed from the work queue.
	QueueMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeproducts_queue_messages_total",
			Help: "Total number of work-queue deliveries handled.",
		},
		[]string{"queue", "result"}, // result = "ack" | "requeue" | "reject"
	)

	// Tracks cache hits and misses for secrets / credentials.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeproducts_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Gauges the last completed directory scan (seconds since epoch).
	LastScanTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feeproducts_last_scan_timestamp",
			Help: "Timestamp (unix seconds) of the last completed input directory scan.",
		},
		[]string{"component"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters are not meant for duration tracking
	}
}

func IncRecord(phase string) {
	RecordsClassified.WithLabelValues(phase).Inc()
}

func IncLowConfidence(reason string) {
	LowConfidenceTotal.WithLabelValues(reason).Inc()
}

func ObserveProducts(n int) {
	ProductsPerRecord.Observe(float64(n))
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncQueueMessage(queue, result string) {
	QueueMessagesTotal.WithLabelValues(queue, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func SetLastScan(component string, t time.Time) {
	LastScanTimestamp.WithLabelValues(component).Set(float64(t.Unix()))
}
