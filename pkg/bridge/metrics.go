package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RequestsTotal counts relay requests by operation and result.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_bridge_requests_total",
			Help: "Total relay requests by operation and result",
		},
		[]string{"op", "result"},
	)

	// RequestDuration tracks relay round trips, including time spent waiting for wallet approval.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onearb_wallet_bridge_request_duration_seconds",
			Help:    "Relay request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"op"},
	)
)
