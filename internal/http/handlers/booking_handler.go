// Booking HTTP handlers.
//
//   - POST /bookings                 (customer; Idempotency-Key supported)
//   - GET  /bookings                 (caller's bookings, ETag/304)
//   - GET  /bookings/{id}
//   - POST /bookings/{id}/confirm    (stylist)
//   - POST /bookings/{id}/decline    (stylist)
//   - POST /bookings/{id}/cancel     (customer or stylist)
//   - POST /bookings/{id}/complete   (stylist)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/services"
)

// CreateBookingRequest is the JSON payload for POST /bookings. Location
// defaults to the stylist's place; card_token may be empty for free orders.
type CreateBookingRequest struct {
	ServiceIDs    []string `json:"service_ids"    binding:"required" example:"4b0c7f0e-2f6a-4a55-9d4f-8f3c2f3c1a11"`
	StartTime     string   `json:"start_time"     binding:"required" example:"2026-03-05T10:00:00Z"`
	Location      string   `json:"location"                          example:"stylist"`
	AddressID     string   `json:"address_id"`
	Note          string   `json:"note"                              example:"Langt hår, ca. 40 cm"`
	DiscountCode  string   `json:"discount_code"                     example:"VAR2026"`
	AffiliateCode string   `json:"affiliate_code"                    example:"KARI42"`
	CardToken     string   `json:"card_token"                        example:"tokn_test_5g0lt"`
}

// ReasonRequest carries an optional free-text reason.
type ReasonRequest struct {
	Reason string `json:"reason" example:"Sykdom"`
}

// ListBookingsResponse wraps a page of bookings.
type ListBookingsResponse struct {
	Bookings   []domain.Booking `json:"bookings"`
	Pagination Pagination       `json:"pagination"`
}

// CreateBooking godoc
// @ID          createBooking
// @Summary     Book services
// @Description Reserves a slot and authorizes the card. Retries with the same Idempotency-Key replay the first result.
// @Tags        Bookings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header    string                         false  "Client retry key"
// @Param       body             body      handlers.CreateBookingRequest  true   "Booking"
// @Success     201  {object}  domain.Booking
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse "Card declined"
// @Failure     409  {object}  handlers.ErrorResponse "Slot taken"
// @Failure     422  {object}  handlers.ErrorResponse "Discount or affiliate code rejected"
// @Router      /bookings [post]
func (h *Handlers) CreateBooking(c *gin.Context) {
	ctx := c.Request.Context()
	me := actor(c)

	if id, status, hit := h.replayed(c, scopeBookings); hit {
		d, err := h.Bookings.Get(ctx, me, id)
		if err != nil {
			c.Writer.Header().Del("Idempotency-Replayed")
			failErr(c, err)
			return
		}
		ok(c, status, d.Booking)
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service_ids and start_time are required")
		return
	}
	start, err := parseTime(req.StartTime)
	if err != nil || start == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "start_time must be RFC 3339")
		return
	}

	loc := domain.Location(strings.ToLower(strings.TrimSpace(req.Location)))
	if loc == "" {
		loc = domain.LocationStylist
	}

	b, err := h.Bookings.Create(ctx, me, services.CreateBookingInput{
		ServiceIDs:    req.ServiceIDs,
		StartTime:     *start,
		Location:      loc,
		AddressID:     strings.TrimSpace(req.AddressID),
		Note:          req.Note,
		DiscountCode:  req.DiscountCode,
		AffiliateCode: req.AffiliateCode,
		CardToken:     strings.TrimSpace(req.CardToken),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	h.remember(c, scopeBookings, b.ID, http.StatusCreated)
	ok(c, http.StatusCreated, b)
}

// ListBookings godoc
// @ID          listBookings
// @Summary     List own bookings
// @Description Customers see what they booked, stylists what they were booked for, admins everything.
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Param       status         query   string  false  "pending|confirmed|completed|cancelled"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Success     200  {object}  handlers.ListBookingsResponse
// @Success     304  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Unknown status"
// @Router      /bookings [get]
func (h *Handlers) ListBookings(c *gin.Context) {
	ctx := c.Request.Context()
	me := actor(c)
	page, pageSize := clampPagination(c)
	status := domain.BookingStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))

	count, maxTS, err := h.Bookings.ListStats(ctx, me, status)
	if err != nil {
		failErr(c, err)
		return
	}
	if notModified(c, "bookings:"+string(status), count, maxTS, page, pageSize) {
		return
	}

	items, total, err := h.Bookings.ListForUser(ctx, me, status, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListBookingsResponse{Bookings: items, Pagination: newPagination(page, pageSize, total)})
}

// GetBooking godoc
// @ID          getBooking
// @Summary     Get a booking
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Booking ID"
// @Success     200  {object}  services.BookingDetail
// @Failure     404  {object}  handlers.ErrorResponse "Booking not found"
// @Router      /bookings/{id} [get]
func (h *Handlers) GetBooking(c *gin.Context) {
	d, err := h.Bookings.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// ConfirmBooking godoc
// @ID          confirmBooking
// @Summary     Accept a pending booking
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Booking ID"
// @Success     200  {object}  domain.Booking
// @Failure     409  {object}  handlers.ErrorResponse "Not pending"
// @Router      /bookings/{id}/confirm [post]
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	b, err := h.Bookings.Confirm(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// DeclineBooking godoc
// @ID          declineBooking
// @Summary     Decline a pending booking
// @Description Releases the card authorization.
// @Tags        Bookings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                  true   "Booking ID"
// @Param       body  body      handlers.ReasonRequest  false  "Reason"
// @Success     200   {object}  domain.Booking
// @Failure     409   {object}  handlers.ErrorResponse "Not pending"
// @Router      /bookings/{id}/decline [post]
func (h *Handlers) DeclineBooking(c *gin.Context) {
	reason, okBody := bindReason(c)
	if !okBody {
		return
	}
	b, err := h.Bookings.Decline(c.Request.Context(), actor(c), c.Param("id"), reason)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// CancelBooking godoc
// @ID          cancelBooking
// @Summary     Cancel a booking
// @Description Customers cancelling inside the cancellation window pay the late fee; otherwise the hold is released or refunded in full.
// @Tags        Bookings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                  true   "Booking ID"
// @Param       body  body      handlers.ReasonRequest  false  "Reason"
// @Success     200   {object}  domain.Booking
// @Failure     409   {object}  handlers.ErrorResponse "Already completed or cancelled"
// @Router      /bookings/{id}/cancel [post]
func (h *Handlers) CancelBooking(c *gin.Context) {
	reason, okBody := bindReason(c)
	if !okBody {
		return
	}
	b, err := h.Bookings.Cancel(c.Request.Context(), actor(c), c.Param("id"), reason)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// CompleteBooking godoc
// @ID          completeBooking
// @Summary     Mark a booking as done
// @Description Captures any outstanding authorization and credits the referring affiliate.
// @Tags        Bookings
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Booking ID"
// @Success     200  {object}  domain.Booking
// @Failure     409  {object}  handlers.ErrorResponse "Not confirmed or not started"
// @Router      /bookings/{id}/complete [post]
func (h *Handlers) CompleteBooking(c *gin.Context) {
	b, err := h.Bookings.Complete(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

// bindReason reads an optional {"reason": "..."} body. An empty body is fine.
func bindReason(c *gin.Context) (string, bool) {
	var req ReasonRequest
	if c.Request.ContentLength == 0 {
		return "", true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return "", false
	}
	return req.Reason, true
}
