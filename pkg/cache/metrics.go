package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_cache_hits_total",
		Help: "Total number of cache hits",
	})

	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_cache_misses_total",
		Help: "Total number of cache misses",
	})

	SetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_cache_sets_total",
		Help: "Total number of admitted cache sets",
	})

	RejectedSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_cache_rejected_sets_total",
		Help: "Total number of cache sets dropped by admission",
	})

	DeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onearb_wallet_cache_deletes_total",
		Help: "Total number of cache deletes",
	})
)
