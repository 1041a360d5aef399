// Package metrics holds the domain counters exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "firmledger"

var (
	TransactionsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_posted_total",
			Help:      "Transactions committed, by type",
		},
		[]string{"type"},
	)
	PostingConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posting_conflicts_total",
			Help:      "Posting attempts rejected by an account version conflict",
		},
	)
	SettlementRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_runs_total",
			Help:      "Settlement processing runs, by outcome",
		},
		[]string{"outcome"},
	)
	SettlementsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_created_total",
			Help:      "Settlements inserted",
		},
	)
	SettlementsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_skipped_total",
			Help:      "Partner periods skipped because a settlement already existed",
		},
	)
	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Settlement notifications that could not be delivered",
		},
	)
)

// Outcome labels for SettlementRuns.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
