// Admin HTTP handlers (role admin).
//
//   - GET  /admin/payments                         (table; filters, sort, ETag)
//   - GET  /admin/payments/export.csv
//   - GET  /admin/payments/export.xlsx
//   - GET  /admin/payments/{id}
//   - POST /admin/payments/{id}/refunds            (Idempotency-Key supported)
//   - POST /admin/discounts
//   - POST /admin/affiliate/commissions/{id}/paid
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
	"github.com/tbourn/nabostylisten-backend/internal/services"
	"github.com/tbourn/nabostylisten-backend/internal/utils"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ListPaymentsResponse wraps a page of the admin payments table.
type ListPaymentsResponse struct {
	Payments   []repo.PaymentRow `json:"payments"`
	Pagination Pagination        `json:"pagination"`
}

// RefundRequest is the JSON payload for POST /admin/payments/{id}/refunds.
type RefundRequest struct {
	AmountOre int64  `json:"amount_ore" example:"25000"`
	Reason    string `json:"reason"     example:"Kunden var misfornøyd med fargen"`
}

// DiscountRequest is the JSON payload for POST /admin/discounts.
type DiscountRequest struct {
	Code           string `json:"code"              example:"VAR2026"`
	Description    string `json:"description"       example:"Vårkampanje"`
	Kind           string `json:"kind"              example:"percent"`
	Value          int64  `json:"value"             example:"15"`
	MinOrderOre    int64  `json:"min_order_ore"     example:"50000"`
	MaxUses        *int   `json:"max_uses"          example:"100"`
	MaxUsesPerUser int    `json:"max_uses_per_user" example:"1"`
	ValidFrom      string `json:"valid_from"        example:"2026-03-01T00:00:00Z"`
	ValidTo        string `json:"valid_to"          example:"2026-05-31T23:59:59Z"`
}

// paymentQuery reads the admin table filters from the query string.
func paymentQuery(c *gin.Context) (repo.PaymentQuery, error) {
	q := repo.PaymentQuery{
		Status: domain.PaymentStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Search: strings.TrimSpace(c.Query("q")),
		Sort:   strings.ToLower(strings.TrimSpace(c.Query("sort"))),
		Desc:   utils.Truthy(c.Query("desc")),
	}
	var err error
	if q.From, err = parseTime(c.Query("from")); err != nil {
		return q, errors.New("from must be RFC 3339")
	}
	if q.To, err = parseTime(c.Query("to")); err != nil {
		return q, errors.New("to must be RFC 3339")
	}
	return q, nil
}

// ListPayments godoc
// @ID          listPayments
// @Summary     Payments table
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       status         query   string  false  "requires_capture|succeeded|partially_refunded|refunded|cancelled"
// @Param       q              query   string  false  "Customer or stylist name or email"
// @Param       from           query   string  false  "Created at or after (RFC 3339)"
// @Param       to             query   string  false  "Created before (RFC 3339)"
// @Param       sort           query   string  false  "created_at|final_ore|refunded_ore|status|start_time"
// @Param       desc           query   bool    false  "Descending order"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
// @Success     200  {object}  handlers.ListPaymentsResponse
// @Success     304  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad filter"
// @Failure     403  {object}  handlers.ErrorResponse "Not an admin"
// @Router      /admin/payments [get]
func (h *Handlers) ListPayments(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := paymentQuery(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	page, pageSize := clampPagination(c)

	// Stats cover the whole table; the raw query keys the tag per filter.
	count, maxTS, err := h.Payments.Stats(ctx)
	if err != nil {
		failErr(c, err)
		return
	}
	if notModified(c, "payments:"+c.Request.URL.RawQuery, count, maxTS, page, pageSize) {
		return
	}

	rows, total, err := h.Payments.ListPage(ctx, q, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListPaymentsResponse{Payments: rows, Pagination: newPagination(page, pageSize, total)})
}

// ExportPaymentsCSV godoc
// @ID          exportPaymentsCSV
// @Summary     Export payments as CSV
// @Description Same filters as the payments table, without paging.
// @Tags        Admin
// @Produce     text/csv
// @Security    BearerAuth
// @Success     200  {file}    binary
// @Failure     400  {object}  handlers.ErrorResponse "Bad filter"
// @Router      /admin/payments/export.csv [get]
func (h *Handlers) ExportPaymentsCSV(c *gin.Context) {
	h.exportPayments(c, "csv", contentTypeCSV, h.Payments.ExportCSV)
}

// ExportPaymentsXLSX godoc
// @ID          exportPaymentsXLSX
// @Summary     Export payments as Excel
// @Description Same filters as the payments table, without paging.
// @Tags        Admin
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Success     200  {file}    binary
// @Failure     400  {object}  handlers.ErrorResponse "Bad filter"
// @Router      /admin/payments/export.xlsx [get]
func (h *Handlers) ExportPaymentsXLSX(c *gin.Context) {
	h.exportPayments(c, "xlsx", contentTypeXLSX, h.Payments.ExportXLSX)
}

// exportPayments renders the whole file before sending so a failure still
// gets a JSON error instead of a truncated download.
func (h *Handlers) exportPayments(c *gin.Context, ext, contentType string, write func(context.Context, repo.PaymentQuery, io.Writer) error) {
	q, err := paymentQuery(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := write(c.Request.Context(), q, &buf); err != nil {
		status, code := statusFor(err)
		if code == ErrCodeInternal {
			_ = c.Error(err)
			fail(c, status, ErrCodeExportFailed, "export failed")
			return
		}
		failErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.Payments.ExportName(ext)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// GetPayment godoc
// @ID          getPayment
// @Summary     Get a payment with its refunds
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Payment ID"
// @Success     200  {object}  domain.Payment
// @Failure     404  {object}  handlers.ErrorResponse "Payment not found"
// @Router      /admin/payments/{id} [get]
func (h *Handlers) GetPayment(c *gin.Context) {
	p, err := h.Payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// RefundPayment godoc
// @ID          refundPayment
// @Summary     Refund a captured payment
// @Description Full or partial. Retries with the same Idempotency-Key replay the first refund.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header    string                  false  "Client retry key"
// @Param       id               path      string                  true   "Payment ID"
// @Param       body             body      handlers.RefundRequest  true   "Refund"
// @Success     201  {object}  domain.Refund
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Payment not found"
// @Failure     422  {object}  handlers.ErrorResponse "Not refundable or exceeds captured amount"
// @Failure     502  {object}  handlers.ErrorResponse "Payment provider error"
// @Router      /admin/payments/{id}/refunds [post]
func (h *Handlers) RefundPayment(c *gin.Context) {
	ctx := c.Request.Context()
	paymentID := c.Param("id")
	scope := scopeRefundsPrefix + paymentID

	if id, status, hit := h.replayed(c, scope); hit {
		if r := h.findRefund(c, paymentID, id); r != nil {
			ok(c, status, r)
		}
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	r, err := h.Payments.Refund(ctx, actor(c), paymentID, req.AmountOre, req.Reason)
	if err != nil {
		failErr(c, err)
		return
	}
	h.remember(c, scope, r.ID, http.StatusCreated)
	ok(c, http.StatusCreated, r)
}

// findRefund loads a recorded refund for a replay, writing the error
// response itself when it cannot.
func (h *Handlers) findRefund(c *gin.Context, paymentID, refundID string) *domain.Refund {
	p, err := h.Payments.Get(c.Request.Context(), paymentID)
	if err == nil {
		for i := range p.Refunds {
			if p.Refunds[i].ID == refundID {
				return &p.Refunds[i]
			}
		}
		err = services.ErrPaymentNotFound
	}
	c.Writer.Header().Del("Idempotency-Replayed")
	failErr(c, err)
	return nil
}

// CreateDiscount godoc
// @ID          createDiscount
// @Summary     Create a discount code
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.DiscountRequest  true  "Discount"
// @Success     201   {object}  domain.Discount
// @Failure     400   {object}  handlers.ErrorResponse "Bad request"
// @Failure     409   {object}  handlers.ErrorResponse "Code already exists"
// @Router      /admin/discounts [post]
func (h *Handlers) CreateDiscount(c *gin.Context) {
	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	from, err := parseTime(req.ValidFrom)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "valid_from must be RFC 3339")
		return
	}
	to, err := parseTime(req.ValidTo)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "valid_to must be RFC 3339")
		return
	}
	d, err := h.Discounts.Create(c.Request.Context(), actor(c), services.DiscountInput{
		Code:           req.Code,
		Description:    req.Description,
		Kind:           domain.DiscountKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Value:          req.Value,
		MinOrderOre:    req.MinOrderOre,
		MaxUses:        req.MaxUses,
		MaxUsesPerUser: req.MaxUsesPerUser,
		ValidFrom:      from,
		ValidTo:        to,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, d)
}

// MarkCommissionPaid godoc
// @ID          markCommissionPaid
// @Summary     Record an affiliate payout
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Commission ID"
// @Success     200  {object}  domain.AffiliateCommission
// @Failure     404  {object}  handlers.ErrorResponse "Commission not found"
// @Failure     409  {object}  handlers.ErrorResponse "Already paid"
// @Router      /admin/affiliate/commissions/{id}/paid [post]
func (h *Handlers) MarkCommissionPaid(c *gin.Context) {
	cm, err := h.Affiliates.MarkPaid(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, cm)
}
