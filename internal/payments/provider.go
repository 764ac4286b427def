// Package payments abstracts the card processor behind a small Provider
// interface. Bookings authorize a payment intent when requested, capture it
// before the appointment and refund against it afterwards.
//
// Two implementations exist:
//   - OmiseProvider talks to the hosted processor through omise-go.
//   - FakeProvider keeps intents in memory for development and tests.
package payments

import (
	"context"
	"errors"
	"fmt"
)

// Provider names used in configuration and stored on payments.
const (
	ProviderFake  = "fake"
	ProviderOmise = "omise"
)

var (
	// ErrDeclined is returned when the processor refuses an authorization.
	ErrDeclined = errors.New("payment declined")
	// ErrUnknownIntent is returned for an intent id the processor does not know.
	ErrUnknownIntent = errors.New("unknown payment intent")
	// ErrInvalidState is returned when an operation does not fit the intent's state
	// (capturing twice, voiding a captured intent, refunding too much).
	ErrInvalidState = errors.New("invalid payment intent state")
)

// DeclineError carries the processor's failure code and message. It wraps
// ErrDeclined.
type DeclineError struct {
	Code    string
	Message string
}

func (e *DeclineError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment declined: %s", e.Code)
	}
	return fmt.Sprintf("payment declined: %s: %s", e.Code, e.Message)
}

func (e *DeclineError) Unwrap() error { return ErrDeclined }

// AuthorizeRequest describes a hold on the customer's card.
type AuthorizeRequest struct {
	BookingID string
	AmountOre int64
	Currency  string
	CardToken string
	Metadata  map[string]any
}

// Intent is an authorized, not yet captured, charge.
type Intent struct {
	ID     string
	Status string
}

// Provider is the processor contract used by the booking and payment services.
type Provider interface {
	// Name identifies the provider ("omise", "fake").
	Name() string
	// Authorize places a hold for the request amount without capturing it.
	Authorize(ctx context.Context, req AuthorizeRequest) (Intent, error)
	// Capture charges amountOre of an authorized intent. amountOre may be
	// lower than the authorized amount; the remainder is released.
	Capture(ctx context.Context, intentID string, amountOre int64) error
	// Void releases an uncaptured intent.
	Void(ctx context.Context, intentID string) error
	// Refund returns amountOre of a captured intent and yields the
	// processor refund id.
	Refund(ctx context.Context, intentID string, amountOre int64, metadata map[string]any) (string, error)
}
