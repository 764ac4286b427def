// Package events defines the marketplace's domain events and the publishers
// that move them: a RabbitMQ topic exchange in production, an in-process Bus
// for single-binary deployments and tests, and Nop.
//
// Every message is an Envelope:
//
//	{"id": "...", "event": "booking.confirmed", "version": 1,
//	 "occurred_at": "...", "data": {...}}
//
// The routing key equals Envelope.Event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Routing keys.
const (
	RKProfileCreated      = "profile.created"
	RKBookingRequested    = "booking.requested"
	RKBookingConfirmed    = "booking.confirmed"
	RKBookingCancelled    = "booking.cancelled"
	RKBookingCompleted    = "booking.completed"
	RKPaymentRefunded     = "payment.refunded"
	RKChatMessage         = "chat.message"
	RKAffiliateCommission = "affiliate.commission"
)

const envelopeVersion = 1

// AllKeys lists every routing key the API publishes.
var AllKeys = []string{
	RKProfileCreated, RKBookingRequested, RKBookingConfirmed, RKBookingCancelled,
	RKBookingCompleted, RKPaymentRefunded, RKChatMessage, RKAffiliateCommission,
}

// Envelope is the wire format of every event.
type Envelope struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Version    int             `json:"version"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// New wraps data into an Envelope with a fresh id.
func New(event string, data any) (Envelope, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		Event:      event,
		Version:    envelopeVersion,
		OccurredAt: time.Now().UTC(),
		Data:       b,
	}, nil
}

// Decode unmarshals the payload of e into T.
func Decode[T any](e Envelope) (T, error) {
	var v T
	err := json.Unmarshal(e.Data, &v)
	return v, err
}

// Publisher sends envelopes to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, e Envelope) error
}

// Handler processes one envelope. A non-nil error asks for redelivery.
type Handler func(ctx context.Context, e Envelope) error

// Emit builds an envelope and publishes it.
func Emit(ctx context.Context, p Publisher, event string, data any) error {
	if p == nil {
		return nil
	}
	e, err := New(event, data)
	if err != nil {
		return err
	}
	return p.Publish(ctx, e)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Envelope) error { return nil }

// ---- payloads ----

// ProfileCreated is published when a profile is first stored.
type ProfileCreated struct {
	ProfileID string `json:"profile_id"`
	Role      string `json:"role"`
}

// BookingChanged is the payload of every booking.* event.
type BookingChanged struct {
	BookingID  string    `json:"booking_id"`
	CustomerID string    `json:"customer_id"`
	StylistID  string    `json:"stylist_id"`
	StartTime  time.Time `json:"start_time"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actor_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RefundOre  int64     `json:"refund_ore,omitempty"`
}

// PaymentRefunded is published after a refund succeeds at the processor.
type PaymentRefunded struct {
	PaymentID   string `json:"payment_id"`
	BookingID   string `json:"booking_id"`
	RefundID    string `json:"refund_id"`
	AmountOre   int64  `json:"amount_ore"`
	RefundedOre int64  `json:"refunded_ore"`
	Reason      string `json:"reason"`
}

// ChatMessagePosted is published for every new chat message.
type ChatMessagePosted struct {
	BookingID string `json:"booking_id"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Preview   string `json:"preview"`
}

// CommissionEarned is published when a referred booking completes.
type CommissionEarned struct {
	CommissionID string `json:"commission_id"`
	LinkID       string `json:"affiliate_link_id"`
	StylistID    string `json:"stylist_id"`
	BookingID    string `json:"booking_id"`
	AmountOre    int64  `json:"amount_ore"`
}
