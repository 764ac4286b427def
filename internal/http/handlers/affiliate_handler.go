// Affiliate and discount HTTP handlers.
//
//   - POST /affiliate/link            (stylist; issue referral code)
//   - GET  /affiliate/link            (stylist)
//   - GET  /affiliate/commissions     (stylist)
//   - GET  /affiliate/click/{code}    (public; counts a visit)
//   - GET  /discounts/{code}/validate (quote a code against an order)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/utils"
)

// AffiliateClickResponse tells the client which code to attach to bookings.
type AffiliateClickResponse struct {
	Code      string `json:"code"       example:"KARI42"`
	StylistID string `json:"stylist_id"`
}

// CreateAffiliateLink godoc
// @ID          createAffiliateLink
// @Summary     Issue a referral code
// @Description A stylist has at most one code.
// @Tags        Affiliate
// @Produce     json
// @Security    BearerAuth
// @Success     201  {object}  domain.AffiliateLink
// @Failure     403  {object}  handlers.ErrorResponse "Not a stylist"
// @Failure     409  {object}  handlers.ErrorResponse "Code already issued"
// @Router      /affiliate/link [post]
func (h *Handlers) CreateAffiliateLink(c *gin.Context) {
	l, err := h.Affiliates.CreateLink(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, l)
}

// GetAffiliateLink godoc
// @ID          getAffiliateLink
// @Summary     Get own referral code
// @Tags        Affiliate
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.AffiliateLink
// @Failure     404  {object}  handlers.ErrorResponse "No code issued"
// @Router      /affiliate/link [get]
func (h *Handlers) GetAffiliateLink(c *gin.Context) {
	l, err := h.Affiliates.Get(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, l)
}

// ListAffiliateCommissions godoc
// @ID          listAffiliateCommissions
// @Summary     List own commissions
// @Tags        Affiliate
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.AffiliateOverview
// @Failure     404  {object}  handlers.ErrorResponse "No code issued"
// @Router      /affiliate/commissions [get]
func (h *Handlers) ListAffiliateCommissions(c *gin.Context) {
	o, err := h.Affiliates.ListCommissions(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, o)
}

// TrackAffiliateClick godoc
// @ID          trackAffiliateClick
// @Summary     Follow a referral code
// @Tags        Affiliate
// @Produce     json
// @Param       code  path      string  true  "Referral code"
// @Success     200   {object}  handlers.AffiliateClickResponse
// @Failure     404   {object}  handlers.ErrorResponse "Unknown or inactive code"
// @Router      /affiliate/click/{code} [get]
func (h *Handlers) TrackAffiliateClick(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	l, err := h.Affiliates.TrackClick(c.Request.Context(), code)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AffiliateClickResponse{Code: l.Code, StylistID: l.StylistID})
}

// ValidateDiscount godoc
// @ID          validateDiscount
// @Summary     Quote a discount code
// @Description Checks the code for the calling customer against an order total without using it.
// @Tags        Discounts
// @Produce     json
// @Security    BearerAuth
// @Param       code       path   string  true  "Discount code"
// @Param       order_ore  query  int     true  "Order total in øre"
// @Success     200  {object}  services.DiscountQuote
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     422  {object}  handlers.ErrorResponse "Code rejected"
// @Router      /discounts/{code}/validate [get]
func (h *Handlers) ValidateDiscount(c *gin.Context) {
	order, okOrder := utils.ParseInt64(c.Query("order_ore"))
	if !okOrder || order <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order_ore must be a positive øre amount")
		return
	}
	q, err := h.Discounts.Validate(c.Request.Context(), actor(c).ID, c.Param("code"), order)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, q)
}
