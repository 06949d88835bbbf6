package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calendar",
			Name:      "reservation_attempts_total",
			Help:      "Count of slot reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bookingsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calendar",
			Name:      "bookings_confirmed_total",
			Help:      "Count of bookings confirmed within their lock window.",
		},
	)

	bookingsCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calendar",
			Name:      "bookings_cancelled_total",
			Help:      "Count of bookings cancelled, by trigger.",
		},
		[]string{"trigger"},
	)

	sweeperReclaimedSlots = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calendar",
			Name:      "sweeper_reclaimed_slots_total",
			Help:      "Count of expired slot locks released by the sweeper.",
		},
	)

	fallbackEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calendar",
			Name:      "event_fallback_total",
			Help:      "Count of events diverted to the in-memory fallback queue.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationAttempts,
			bookingsConfirmed,
			bookingsCancelled,
			sweeperReclaimedSlots,
			fallbackEvents,
		)
	})
}

func IncReservationAttempt(outcome string) {
	reservationAttempts.WithLabelValues(outcome).Inc()
}

func IncBookingConfirmed() {
	bookingsConfirmed.Inc()
}

func IncBookingCancelled(trigger string) {
	bookingsCancelled.WithLabelValues(trigger).Inc()
}

func AddSweeperReclaimed(n int) {
	sweeperReclaimedSlots.Add(float64(n))
}

func IncFallbackEvent() {
	fallbackEvents.Inc()
}
