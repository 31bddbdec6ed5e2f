/*
Package metrics provides Prometheus metrics collection and exposition
for this module.

Metrics are defined and registered at package init using the
Prometheus client library, covering catalog size, transaction
throughput, scheduler dispatch, and commit-log/blob durability.
Metrics are exposed via an HTTP handler for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│  Prometheus Registry (MustRegister at package init)       │
	│          │                                                │
	│  Catalog: tables, indexes, rows, tx offset                │
	│  Transactions: commits, rollbacks, commit duration        │
	│  Scheduler: dispatch count by kind, queue depth, latency  │
	│  Persist: commit log appends, blob bytes written          │
	│          │                                                │
	│  HTTP /metrics (promhttp.Handler)                         │
	└────────────────────────────────────────────────────────┘

# Core Components

Collector samples a catalog.CommittedState on a fixed interval and
publishes its size as gauges — this is how table/row/index counts
reach Prometheus without every insert/delete call site updating a
gauge directly:

	collector := metrics.NewCollector(committedState)
	collector.Start()
	defer collector.Stop()

Timer is a small helper for timing an operation and recording it to a
histogram, with or without labels:

	timer := metrics.NewTimer()
	tx, err := ds.Commit(txHandle)
	timer.ObserveDuration(metrics.TxCommitDuration)

# Usage

	import "github.com/cuemby/warren/pkg/metrics"

	metrics.TxCommitsTotal.Inc()
	metrics.TxRowsInserted.Add(float64(len(data.Inserts)))
	metrics.ScheduledCallsTotal.WithLabelValues("scheduled").Inc()

	http.Handle("/metrics", metrics.Handler())
	http.ListenAndServe(":9090", nil)

# Integration Points

  - pkg/catalog: sampled by Collector for table/row/index/tx-offset gauges
  - cmd/sdbcore serve: increments ScheduledCallsTotal per dispatch and
    serves Handler and the health handlers

The transaction, scheduler queue/latency, persist and btree metrics are
registered and exported, but pkg/datastore, pkg/scheduler and
pkg/persist do not update them; they stay at zero unless the embedding
process records them itself.

# Design Patterns

All metrics are registered once in init(); MustRegister panics on a
duplicate name, which is deliberate — a second metric with the same
name is a bug, not something to silently ignore. Label sets are kept
small and bounded (table name, reducer kind) to avoid cardinality
blowup; row-level or tx-offset-level labels are never used.

# See Also

  - https://prometheus.io/docs/practices/histograms/
*/
package metrics
