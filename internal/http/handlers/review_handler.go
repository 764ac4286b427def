// Review HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// ReviewRequest is the JSON payload for POST /bookings/{id}/review.
type ReviewRequest struct {
	// Rating from 1 to 5.
	Rating  int    `json:"rating"  example:"5"`
	Comment string `json:"comment" example:"Fantastisk resultat, kommer tilbake!"`
}

// ListReviewsResponse is a page of a stylist's reviews with the stylist's
// overall rating.
type ListReviewsResponse struct {
	Rating     domain.Rating   `json:"rating"`
	Reviews    []domain.Review `json:"reviews"`
	Pagination Pagination      `json:"pagination"`
}

// CreateReview godoc
// @ID          createReview
// @Summary     Review a completed booking
// @Description One review per booking, written by its customer.
// @Tags        Reviews
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                  true  "Booking ID"
// @Param       body  body      handlers.ReviewRequest  true  "Review"
// @Success     201   {object}  domain.Review
// @Failure     400   {object}  handlers.ErrorResponse "Rating out of range"
// @Failure     404   {object}  handlers.ErrorResponse "Booking not found"
// @Failure     409   {object}  handlers.ErrorResponse "Not completed or already reviewed"
// @Router      /bookings/{id}/review [post]
func (h *Handlers) CreateReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	r, err := h.Reviews.Create(c.Request.Context(), actor(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// ListStylistReviews godoc
// @ID          listStylistReviews
// @Summary     List a stylist's reviews
// @Tags        Reviews
// @Produce     json
// @Param       id         path   string  true   "Stylist ID"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListReviewsResponse
// @Failure     404  {object}  handlers.ErrorResponse "Stylist not found"
// @Router      /stylists/{id}/reviews [get]
func (h *Handlers) ListStylistReviews(c *gin.Context) {
	ctx := c.Request.Context()
	stylistID := c.Param("id")
	page, pageSize := clampPagination(c)

	items, total, err := h.Reviews.ListForStylist(ctx, stylistID, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	rating, err := h.Reviews.StylistRating(ctx, stylistID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListReviewsResponse{
		Rating:     rating,
		Reviews:    items,
		Pagination: newPagination(page, pageSize, total),
	})
}
