package walletsession

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ConnectAttemptsTotal counts connect calls by outcome.
	ConnectAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_connect_attempts_total",
			Help: "Total wallet connect attempts by result",
		},
		[]string{"result"},
	)

	// StaleConnectsDiscardedTotal counts connect results dropped because a disconnect happened meanwhile.
	StaleConnectsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_stale_connects_discarded_total",
		Help: "Total connect results discarded after a concurrent disconnect",
	})

	// SessionRestoresTotal counts hydration outcomes.
	SessionRestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_session_restores_total",
			Help: "Total session restore attempts by result",
		},
		[]string{"result"},
	)

	// NetworkSwitchesTotal counts switchNetwork outcomes.
	NetworkSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_network_switches_total",
			Help: "Total network switch requests by result",
		},
		[]string{"result"},
	)

	// ProviderEventsTotal counts events handled by the controller.
	ProviderEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onearb_wallet_provider_events_handled_total",
			Help: "Total provider events handled by type",
		},
		[]string{"event"},
	)

	// Connected is 1 while an account is authorized.
	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "onearb_wallet_connected",
		Help: "Whether a wallet account is currently connected (1) or not (0)",
	})
)
