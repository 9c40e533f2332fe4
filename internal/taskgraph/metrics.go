package taskgraph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/kazz187/taskgraph/internal/taskgraph")

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskgraph",
			Subsystem: "service",
			Name:      "operations_total",
			Help:      "Task graph operations by outcome. result is ok or the rejection kind.",
		},
		[]string{"operation", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskgraph",
			Subsystem: "service",
			Name:      "operation_duration_seconds",
			Help:      "Latency of task graph operations including lock wait.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	validatorVisited = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "taskgraph",
			Subsystem: "validator",
			Name:      "visited_nodes",
			Help:      "Nodes expanded by the cycle search per dependency insert.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	eventsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskgraph",
			Subsystem: "events",
			Name:      "appended_total",
			Help:      "Events committed to the log.",
		},
		[]string{"kind"},
	)
)
