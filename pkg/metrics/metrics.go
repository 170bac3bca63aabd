// Package metrics registers the Prometheus collectors exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChainRPCRequests counts JSON-RPC calls by method and outcome.
	ChainRPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_rpc_requests_total",
			Help: "Chain JSON-RPC requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	// ChainRPCDuration observes JSON-RPC call latency by method.
	ChainRPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_rpc_duration_seconds",
			Help:    "Chain JSON-RPC request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// TransfersSubmitted counts transfer submissions by token kind.
	TransfersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transfers_submitted_total",
			Help: "Transfer submissions by token symbol",
		},
		[]string{"token"},
	)

	// TransfersResolved counts terminal transfer outcomes.
	TransfersResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transfers_resolved_total",
			Help: "Transfers resolved to a terminal status",
		},
		[]string{"status"},
	)

	// BalanceRefreshes counts balance aggregation runs by cache outcome.
	BalanceRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_balance_refreshes_total",
			Help: "Balance refresh runs by source (cache or rpc)",
		},
		[]string{"source"},
	)

	// LedgerSubscriptions tracks live ledger subscriptions.
	LedgerSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_ledger_subscriptions",
			Help: "Currently open ledger snapshot subscriptions",
		},
	)

	// DatabaseConnectionsGauge tracks sql.DB pool state.
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "database_connections",
			Help: "Database connection pool state",
		},
		[]string{"state"},
	)
)
