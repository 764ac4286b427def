package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nabostylisten_booking_transitions_total",
			Help: "Booking status changes by target status.",
		},
		[]string{"status"},
	)

	paymentCaptures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nabostylisten_payments_captured_total",
			Help: "Payments captured at the processor.",
		},
	)

	capturedOre = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nabostylisten_payments_captured_ore_total",
			Help: "Sum of captured amounts in øre.",
		},
	)

	refundedOre = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nabostylisten_refunds_ore_total",
			Help: "Sum of refunded amounts in øre by origin (admin, cancellation, capture).",
		},
		[]string{"origin"},
	)

	providerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nabostylisten_payment_provider_errors_total",
			Help: "Failed payment provider calls by operation.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(bookingTransitions, paymentCaptures, capturedOre, refundedOre, providerErrors)
}

// BookingTransition counts a booking entering status.
func BookingTransition(status string) { bookingTransitions.WithLabelValues(status).Inc() }

// PaymentCaptured counts one capture of amountOre.
func PaymentCaptured(amountOre int64) {
	paymentCaptures.Inc()
	if amountOre > 0 {
		capturedOre.Add(float64(amountOre))
	}
}

// Refunded adds amountOre to the refund total for origin.
func Refunded(origin string, amountOre int64) {
	if amountOre > 0 {
		refundedOre.WithLabelValues(origin).Add(float64(amountOre))
	}
}

// ProviderError counts a failed provider call.
func ProviderError(op string) { providerErrors.WithLabelValues(op).Inc() }
