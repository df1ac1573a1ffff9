package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transaction metrics
	TransactionsCreated prometheus.Counter
	TransactionErrors   *prometheus.CounterVec
	ApplyDuration       prometheus.Histogram

	// Ledger metrics
	DeltasApplied     prometheus.Counter
	DeltasSkipped     *prometheus.CounterVec
	ApplyRetries      prometheus.Counter
	ReconcileRuns     prometheus.Counter
	ReconcileRecovered prometheus.Counter

	// Settlement metrics
	SettlementsRecorded prometheus.Counter
	SharesMarkedPaid    prometheus.Counter

	// Friendship metrics
	FriendRequestsCreated prometheus.Counter
	FriendRequestOutcomes *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Transaction metrics
		TransactionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_transactions_created_total",
			Help: "Total number of transactions created",
		}),
		TransactionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_transaction_errors_total",
				Help: "Total number of transaction errors by type",
			},
			[]string{"error_type"},
		),
		ApplyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "splitledger_apply_duration_seconds",
			Help:    "Duration of balance apply operations",
			Buckets: prometheus.DefBuckets,
		}),

		// Ledger metrics
		DeltasApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_deltas_applied_total",
			Help: "Total number of pairwise balance deltas applied",
		}),
		DeltasSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_deltas_skipped_total",
				Help: "Total number of pairwise deltas skipped by reason",
			},
			[]string{"reason"},
		),
		ApplyRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_apply_retries_total",
			Help: "Total number of apply retries after serialization conflicts",
		}),
		ReconcileRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_reconcile_runs_total",
			Help: "Total number of reconciliation passes",
		}),
		ReconcileRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_reconcile_recovered_total",
			Help: "Total number of transactions recovered by reconciliation",
		}),

		// Settlement metrics
		SettlementsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_settlements_recorded_total",
			Help: "Total number of settlements recorded",
		}),
		SharesMarkedPaid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_shares_marked_paid_total",
			Help: "Total number of participant shares marked paid by settlement",
		}),

		// Friendship metrics
		FriendRequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_friend_requests_created_total",
			Help: "Total number of friend requests created",
		}),
		FriendRequestOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_friend_request_outcomes_total",
				Help: "Total friend request responses by outcome",
			},
			[]string{"outcome"},
		),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splitledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
