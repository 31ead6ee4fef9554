/*
Package metrics 定义进程级 Prometheus 指标。

指标通过 promauto 注册到默认 Registry，由 /metrics 端点暴露。
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "iam"

var (
	// EventsAppended counts events written to the event store per aggregate type.
	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_appended_total",
		Help:      "Events appended to the event store.",
	}, []string{"aggregate_type"})

	// ConcurrencyConflicts counts appends rejected by the expected version check.
	ConcurrencyConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "concurrency_conflicts_total",
		Help:      "Appends rejected because the stream moved past the expected version.",
	}, []string{"aggregate_type"})

	AppendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_append_duration_seconds",
		Help:      "Latency of event store appends.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"aggregate_type"})

	// AggregateLoads counts rehydrations by source: "snapshot" or "replay".
	AggregateLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregate_loads_total",
		Help:      "Aggregate rehydrations by source.",
	}, []string{"aggregate_type", "source"})

	SnapshotsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_written_total",
		Help:      "Snapshots written by repositories.",
	}, []string{"aggregate_type"})

	SnapshotCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_cache_hits_total",
		Help:      "Snapshot reads served from the in-process LRU.",
	})

	SnapshotCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_cache_misses_total",
		Help:      "Snapshot reads that fell through to the backing store.",
	})

	// OutboxEvents counts relay outcomes: "published", "retry" or "failed".
	OutboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox relay outcomes.",
	}, []string{"outcome"})

	OutboxPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_pending_batch_size",
		Help:      "Pending outbox rows fetched by the last poll.",
	})

	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_failures_total",
		Help:      "In-process publish failures after a successful append.",
	}, []string{"event_type"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by the operational server.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)
