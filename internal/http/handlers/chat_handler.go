// Chat HTTP handlers.
//
// Every booking has one chat between its customer and stylist:
//   - GET  /bookings/{id}/messages       (paginated, ETag support)
//   - POST /bookings/{id}/messages       (send)
//   - POST /bookings/{id}/messages/read  (mark the other party's messages read)
package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for sending a chat message.
type PostMessageRequest struct {
	// Content is the message text. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Hei! Kan vi starte 10:15 i stedet?"`
}

// ListMessagesResponse contains a page of chat messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// MarkReadResponse reports how many messages were marked read.
type MarkReadResponse struct {
	Marked int64 `json:"marked" example:"3"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two,
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

//
// Handlers
//

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a chat message
// @Description Appends a message to the booking's chat. Only the customer and the stylist of the booking may write.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                       true  "Booking ID"
// @Param       body  body  handlers.PostMessageRequest  true  "Message"
//
// @Success     201  {object}  domain.ChatMessage
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Booking not found"
// @Router      /bookings/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	content := sanitizeContent(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	m, err := h.Chats.Post(c.Request.Context(), actor(c), c.Param("id"), content)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List chat messages
// @Description Returns the booking's chat oldest first. Admins may read any chat.
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
//
// @Param       id             path    string  true   "Booking ID"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
//
// @Success     200  {object}  handlers.ListMessagesResponse
// @Success     304  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse "Booking not found"
// @Router      /bookings/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	me := actor(c)
	bookingID := c.Param("id")
	page, pageSize := clampPagination(c)

	count, maxTS, err := h.Chats.Stats(ctx, me, bookingID)
	if err != nil {
		failErr(c, err)
		return
	}
	if notModified(c, "messages:"+bookingID, count, maxTS, page, pageSize) {
		return
	}

	items, total, err := h.Chats.ListPage(ctx, me, bookingID, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: newPagination(page, pageSize, total)})
}

// MarkMessagesRead godoc
// @ID          markMessagesRead
// @Summary     Mark messages read
// @Tags        Chat
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Booking ID"
// @Success     200  {object}  handlers.MarkReadResponse
// @Failure     404  {object}  handlers.ErrorResponse "Booking not found"
// @Router      /bookings/{id}/messages/read [post]
func (h *Handlers) MarkMessagesRead(c *gin.Context) {
	n, err := h.Chats.MarkRead(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Marked: n})
}
