package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersBookedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_booked_total",
		Help: "Total number of orders booked",
	})

	OrdersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_accepted_total",
		Help: "Total number of orders accepted for hand-off",
	})

	OrdersReturnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_returned_total",
		Help: "Total number of orders returned",
	})

	OrdersRatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_rated_total",
		Help: "Total number of orders rated",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of stale bookings cancelled by the sweeper",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected order operations",
	}, []string{"reason"})

	PenaltiesAssessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "penalties_assessed_total",
		Help: "Total number of late-fee assessments persisted",
	})

	PenaltyAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "penalty_amount",
		Help:    "Distribution of assessed late-fee amounts",
		Buckets: prometheus.ExponentialBuckets(1, 2.5, 10),
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Duration of sweeper passes",
		Buckets: prometheus.DefBuckets,
	})

	SweepItemsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_items_failed_total",
		Help: "Total number of orders skipped during sweeps",
	}, []string{"scan"})

	SweepsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweeps_skipped_total",
		Help: "Total number of sweep ticks skipped because a pass was still running",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
