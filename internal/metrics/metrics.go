package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking lifecycle counters, exposed on /metrics.
var (
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charter_flight_requests_created_total",
		Help: "Number of flight requests created",
	})

	OffersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charter_offers_submitted_total",
		Help: "Number of operator offers submitted",
	})

	OffersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charter_offers_accepted_total",
		Help: "Number of offers accepted by customers",
	})

	PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charter_payments_recorded_total",
		Help: "Number of bookings paid within the payment window",
	})

	PaymentsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charter_payments_expired_total",
		Help: "Number of bookings expired by the payment window sweep",
	})

	BookingsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charter_bookings_cancelled_total",
		Help: "Number of bookings cancelled, by initiator",
	}, []string{"initiator"})

	SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charter_payment_sweep_errors_total",
		Help: "Number of payment window sweep runs that failed",
	})
)
