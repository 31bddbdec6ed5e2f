package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog metrics
	TablesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_tables_total",
			Help: "Total number of tables registered in the catalog",
		},
	)

	IndexesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_indexes_total",
			Help: "Total number of btree indexes registered in the catalog",
		},
	)

	RowsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_rows_total",
			Help: "Total number of committed rows by table",
		},
		[]string{"table"},
	)

	TxOffset = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_tx_offset",
			Help: "The next tx offset to be assigned by the committed state",
		},
	)

	// Transaction metrics
	TxCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_tx_commits_total",
			Help: "Total number of committed transactions",
		},
	)

	TxRollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_tx_rollbacks_total",
			Help: "Total number of rolled-back transactions",
		},
	)

	TxCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warren_tx_commit_duration_seconds",
			Help:    "Time taken to commit a transaction, from Datastore.Commit to lock release",
			Buckets: prometheus.DefBuckets,
		},
	)

	TxRowsInserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_tx_rows_inserted_total",
			Help: "Total number of rows inserted across all committed transactions",
		},
	)

	TxRowsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_tx_rows_deleted_total",
			Help: "Total number of rows deleted across all committed transactions",
		},
	)

	// Scheduler metrics
	ScheduledCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warren_scheduled_calls_total",
			Help: "Total number of scheduled function dispatches by kind",
		},
		[]string{"kind"}, // "scheduled", "immediate"
	)

	ScheduleQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warren_schedule_queue_depth",
			Help: "Number of entries currently pending in the scheduler's delay queue",
		},
	)

	ScheduleDispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warren_schedule_dispatch_latency_seconds",
			Help:    "Time between a schedule's deadline and its actual dispatch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Persist metrics
	CommitLogAppendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_commit_log_appends_total",
			Help: "Total number of records appended to the durable commit log",
		},
	)

	CommitLogAppendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warren_commit_log_append_duration_seconds",
			Help:    "Time taken to append one record to the commit log",
			Buckets: prometheus.DefBuckets,
		},
	)

	BlobStoreBytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warren_blob_store_bytes_written_total",
			Help: "Total bytes written to the blob store backend",
		},
	)

	// Page/btree metrics
	BTreeKeysTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warren_btree_index_keys_total",
			Help: "Total number of keys held by a btree index",
		},
		[]string{"index"},
	)
)

func init() {
	prometheus.MustRegister(TablesTotal)
	prometheus.MustRegister(IndexesTotal)
	prometheus.MustRegister(RowsTotal)
	prometheus.MustRegister(TxOffset)
	prometheus.MustRegister(TxCommitsTotal)
	prometheus.MustRegister(TxRollbacksTotal)
	prometheus.MustRegister(TxCommitDuration)
	prometheus.MustRegister(TxRowsInserted)
	prometheus.MustRegister(TxRowsDeleted)
	prometheus.MustRegister(ScheduledCallsTotal)
	prometheus.MustRegister(ScheduleQueueDepth)
	prometheus.MustRegister(ScheduleDispatchLatency)
	prometheus.MustRegister(CommitLogAppendsTotal)
	prometheus.MustRegister(CommitLogAppendDuration)
	prometheus.MustRegister(BlobStoreBytesWritten)
	prometheus.MustRegister(BTreeKeysTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
