// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipeTotalRun mirrors a pipe's total_run counter as a gauge, labeled by
	// pipe name, so dashboards can compare it against PipeFailureRun.
	PipeTotalRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipebase_pipe_total_run",
			Help: "Total number of runs, successful or failed, recorded by a pipe's context",
		},
		[]string{"pipe"},
	)

	// PipeFailureRun mirrors a pipe's failure_run counter as a gauge.
	PipeFailureRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipebase_pipe_failure_run",
			Help: "Total number of failed runs recorded by a pipe's context",
		},
		[]string{"pipe"},
	)

	// PipeState tracks a pipe's current context state as a numeric gauge
	// (see pipectx.State for the ordinal mapping).
	PipeState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipebase_pipe_state",
			Help: "Current state of a pipe's context (ordinal, see pipectx.State)",
		},
		[]string{"pipe"},
	)

	// ChannelQueueDepth tracks how full a pipe's outbound channel is.
	ChannelQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipebase_channel_queue_depth",
			Help: "Number of buffered values currently queued on a pipe channel",
		},
		[]string{"pipe"},
	)

	// FanoutDroppedTotal counts downstream indices pruned from a fan-out
	// because their send failed or their receiver was gone.
	FanoutDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipebase_fanout_dropped_total",
			Help: "Total number of downstream channels pruned from a pipe's fan-out",
		},
		[]string{"pipe"},
	)

	// PipeRunLatencySeconds measures the latency of one full run cycle for a pipe.
	PipeRunLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipebase_pipe_run_latency_seconds",
			Help:    "Latency of a single pipe run cycle in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"pipe"},
	)
)
