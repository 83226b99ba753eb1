// Package metrics provides Prometheus metrics for interactors and failure handling.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InteractorCallsTotal tracks interactor invocations by outcome
	InteractorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sprig",
			Subsystem: "interactor",
			Name:      "calls_total",
			Help:      "Total number of interactor calls by outcome",
		},
		[]string{"interactor", "outcome"},
	)

	// InteractorDuration tracks interactor call duration in seconds
	InteractorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sprig",
			Subsystem: "interactor",
			Name:      "duration_seconds",
			Help:      "Duration of interactor calls in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"interactor"},
	)

	// RequestObjectsTotal tracks request object construction by outcome
	RequestObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sprig",
			Subsystem: "request",
			Name:      "objects_total",
			Help:      "Total number of request objects built by outcome",
		},
		[]string{"type", "outcome"},
	)

	// FailuresDispatchedTotal tracks failures sent through a handler chain
	FailuresDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sprig",
			Subsystem: "organize",
			Name:      "failures_dispatched_total",
			Help:      "Total number of failures dispatched to handlers",
		},
		[]string{"action", "handled"},
	)

	// HandlerInvocationsTotal tracks individual failure handler invocations
	HandlerInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sprig",
			Subsystem: "organize",
			Name:      "handler_invocations_total",
			Help:      "Total number of failure handler invocations",
		},
		[]string{"action"},
	)

	// HTTPRequestsTotal tracks served requests by action and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sprig",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by action and status",
		},
		[]string{"action", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sprig",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)
