// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package) together with the
// translation of service errors into status + code pairs. Codes provide
// clients with a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes (e.g., bad_request, unauthorized, conflict) mirror common
//     HTTP status semantics.
//   - Domain codes (e.g., slot_taken, payment_declined) are used where a client
//     is expected to react differently from the generic status.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "slot_taken",
//	  "message": "time slot is not available"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation        = "validation_failed"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeSlotTaken         = "slot_taken"
	ErrCodeSlotBusy          = "slot_busy"
	ErrCodeDiscountInvalid   = "discount_invalid"
	ErrCodeAffiliateInvalid  = "affiliate_invalid"
	ErrCodePaymentDeclined   = "payment_declined"
	ErrCodePaymentProvider   = "payment_provider_error"
	ErrCodeRefundRejected    = "refund_rejected"
	ErrCodeListFailed        = "list_failed"
	ErrCodeExportFailed      = "export_failed"
)

// ErrorDetail names the offending field of a validation error.
type ErrorDetail struct {
	Field  string `json:"field"  example:"start_time"`
	Reason string `json:"reason" example:"must be at least 1h0m0s ahead"`
}

// statusFor maps a service error to an HTTP status and error code.
// Unknown errors map to 500.
func statusFor(err error) (int, string) {
	var ve *services.ValidationError
	var de *services.DiscountError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity, ErrCodeDiscountInvalid
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrAddressNotFound),
		errors.Is(err, services.ErrServiceNotFound),
		errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrDiscountNotFound),
		errors.Is(err, services.ErrAffiliateNotFound),
		errors.Is(err, services.ErrCommissionNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrPaymentTransition),
		errors.Is(err, services.ErrNotStarted):
		return http.StatusConflict, ErrCodeInvalidTransition
	case errors.Is(err, services.ErrSlotTaken):
		return http.StatusConflict, ErrCodeSlotTaken
	case errors.Is(err, services.ErrSlotBusy):
		return http.StatusConflict, ErrCodeSlotBusy
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAffiliateExists),
		errors.Is(err, services.ErrCommissionPaid),
		errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrReviewNotAllowed):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, services.ErrDiscountInvalid):
		return http.StatusUnprocessableEntity, ErrCodeDiscountInvalid
	case errors.Is(err, services.ErrAffiliateInvalid):
		return http.StatusUnprocessableEntity, ErrCodeAffiliateInvalid
	case errors.Is(err, services.ErrNotRefundable),
		errors.Is(err, services.ErrRefundExceeds):
		return http.StatusUnprocessableEntity, ErrCodeRefundRejected
	case errors.Is(err, services.ErrPaymentDeclined):
		return http.StatusPaymentRequired, ErrCodePaymentDeclined
	case errors.Is(err, services.ErrPaymentProvider):
		return http.StatusBadGateway, ErrCodePaymentProvider
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// failErr writes the error envelope for a service error. Internal errors
// are logged with their cause and answered with a generic message.
func failErr(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError && code == ErrCodeInternal {
		_ = c.Error(err)
		fail(c, status, code, "internal server error")
		return
	}
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		failDetail(c, status, code, err.Error(), &ErrorDetail{Field: ve.Field, Reason: ve.Reason})
		return
	}
	fail(c, status, code, err.Error())
}
