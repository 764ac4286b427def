// Package services holds the marketplace business logic: catalog, profiles,
// bookings, payments, reviews, affiliates, discounts and booking chats.
// This file centralizes the service-level error values so that handlers can
// map them to HTTP statuses and stable error codes.
package services

import (
	"errors"
	"fmt"
)

// Lookup errors.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrAddressNotFound    = errors.New("address not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrDiscountNotFound   = errors.New("discount not found")
	ErrAffiliateNotFound  = errors.New("affiliate link not found")
	ErrCommissionNotFound = errors.New("commission not found")
)

// Rule violations.
var (
	// ErrInvalidInput is wrapped by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("not allowed")

	// ErrInvalidTransition is returned for booking status changes the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("booking cannot change to that status")

	// ErrPaymentTransition is returned when a payment status change breaks
	// its lifecycle or races another writer.
	ErrPaymentTransition = errors.New("payment cannot change to that status")

	// ErrNotStarted is returned when completing a booking before its start.
	ErrNotStarted = errors.New("booking has not started yet")

	// ErrSlotTaken means the stylist already has a booking in the interval.
	ErrSlotTaken = errors.New("time slot is not available")

	// ErrSlotBusy means another request is booking the same stylist.
	ErrSlotBusy = errors.New("time slot is being booked, try again")

	// ErrDiscountInvalid is wrapped by every *DiscountError.
	ErrDiscountInvalid = errors.New("discount code cannot be used")

	// ErrAffiliateInvalid is returned for unknown, inactive or self-referring codes.
	ErrAffiliateInvalid = errors.New("affiliate code cannot be used")

	ErrEmailTaken      = errors.New("email already in use")
	ErrAffiliateExists = errors.New("affiliate link already exists")
	ErrCommissionPaid  = errors.New("commission already paid")

	ErrAlreadyReviewed  = errors.New("booking already reviewed")
	ErrReviewNotAllowed = errors.New("only completed bookings can be reviewed")

	// ErrPaymentDeclined is returned when the processor refuses the card.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrPaymentProvider covers every other processor failure.
	ErrPaymentProvider = errors.New("payment provider error")

	ErrNotRefundable = errors.New("payment has not been captured")
	ErrRefundExceeds = errors.New("refund exceeds refundable amount")
)

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

// Unwrap makes errors.Is(err, ErrInvalidInput) true.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// Discount rejection reasons.
const (
	DiscountInactive     = "inactive"
	DiscountNotStarted   = "not_started"
	DiscountExpired      = "expired"
	DiscountExhausted    = "exhausted"
	DiscountMinOrder     = "min_order"
	DiscountPerUserLimit = "per_user_limit"
)

// DiscountError says why a code was rejected.
type DiscountError struct {
	Code   string
	Reason string
}

func (e *DiscountError) Error() string {
	return fmt.Sprintf("discount %s: %s", e.Code, e.Reason)
}

// Unwrap makes errors.Is(err, ErrDiscountInvalid) true.
func (e *DiscountError) Unwrap() error { return ErrDiscountInvalid }
