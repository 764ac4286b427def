package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(bookingTransitions.WithLabelValues("confirmed"))
	BookingTransition("confirmed")
	if got := testutil.ToFloat64(bookingTransitions.WithLabelValues("confirmed")); got != before+1 {
		t.Fatalf("booking transitions = %v; want %v", got, before+1)
	}

	caps, ore := testutil.ToFloat64(paymentCaptures), testutil.ToFloat64(capturedOre)
	PaymentCaptured(50000)
	PaymentCaptured(0)
	if got := testutil.ToFloat64(paymentCaptures); got != caps+2 {
		t.Fatalf("captures = %v; want %v", got, caps+2)
	}
	if got := testutil.ToFloat64(capturedOre); got != ore+50000 {
		t.Fatalf("captured ore = %v; want %v", got, ore+50000)
	}

	ref := testutil.ToFloat64(refundedOre.WithLabelValues("admin"))
	Refunded("admin", 1200)
	Refunded("admin", -5)
	if got := testutil.ToFloat64(refundedOre.WithLabelValues("admin")); got != ref+1200 {
		t.Fatalf("refunded = %v; want %v", got, ref+1200)
	}

	pe := testutil.ToFloat64(providerErrors.WithLabelValues("capture"))
	ProviderError("capture")
	if got := testutil.ToFloat64(providerErrors.WithLabelValues("capture")); got != pe+1 {
		t.Fatalf("provider errors = %v; want %v", got, pe+1)
	}
}
