package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// NativeBalance tracks the connected account's native balance on its current network.
	NativeBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onearb_wallet_native_balance",
		Help: "Native currency balance of the connected account (whole units)",
	})

	// UpdateErrorsTotal tracks the number of failed balance polls.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_balance_update_errors_total",
		Help: "Total number of failed balance update attempts",
	})

	// UpdateDuration tracks the time taken to fetch the balance.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "onearb_wallet_balance_update_duration_seconds",
		Help:    "Time taken to fetch the account balance (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix timestamp of the last successful update.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onearb_wallet_balance_last_update_timestamp",
		Help: "Unix timestamp of last successful balance update",
	})
)
