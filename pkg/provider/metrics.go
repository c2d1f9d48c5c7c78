package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RequestsTotal tracks wallet requests by method.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_provider_requests_total",
			Help: "Total number of wallet provider requests",
		},
		[]string{"method"},
	)

	// RequestErrorsTotal tracks failed wallet requests by method.
	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_provider_request_errors_total",
			Help: "Total number of failed wallet provider requests",
		},
		[]string{"method"},
	)

	// RequestDuration tracks how long wallet requests take, including user approval time.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onearb_wallet_provider_request_duration_seconds",
			Help:    "Wallet provider request duration (seconds)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"method"},
	)

	// EventsReceivedTotal tracks pushed provider events by name.
	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_provider_events_received_total",
			Help: "Total number of provider events received from the event stream",
		},
		[]string{"event"},
	)

	// EventStreamConnected is 1 while the event stream is connected.
	EventStreamConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onearb_wallet_event_stream_connected",
		Help: "Whether the provider event stream is connected (1) or not (0)",
	})

	// ReconnectAttemptsTotal tracks event stream reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_event_stream_reconnect_attempts_total",
		Help: "Total number of event stream reconnection attempts",
	})

	// ReconnectFailuresTotal tracks event stream reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_event_stream_reconnect_failures_total",
		Help: "Total number of event stream reconnection failures",
	})
)
