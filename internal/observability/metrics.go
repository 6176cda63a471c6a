package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busres_reservations_created_total",
			Help: "Total seat reservations created",
		},
	)

	SeatConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busres_seat_conflicts_total",
			Help: "Total seat selections rejected for conflicts",
		},
	)

	ReservationsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busres_reservations_expired_total",
			Help: "Total reservations reclaimed by the expiry sweep",
		},
	)

	BookingsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busres_bookings_confirmed_total",
			Help: "Total bookings confirmed",
		},
	)

	WalletDebits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busres_wallet_debits_total",
			Help: "Total successful wallet debits",
		},
	)

	WalletCredits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busres_wallet_credits_total",
			Help: "Total wallet credits (refunds and top-ups)",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "busres_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "busres_rate_limit_exceeded_total",
			Help: "Total requests rejected by rate limiting",
		},
	)
)
