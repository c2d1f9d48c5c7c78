package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// OperationsTotal counts session store calls by backend, operation and result.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_session_store_operations_total",
			Help: "Total session store operations",
		},
		[]string{"backend", "op", "result"},
	)
)

func observe(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(backend, op, result).Inc()
}
