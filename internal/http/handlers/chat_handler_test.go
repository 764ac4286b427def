package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/nabostylisten-backend/internal/services"
)

func TestChat_PostListAndRead(t *testing.T) {
	a := newTestAPI(t)
	b := a.book(t)
	path := "/bookings/" + b.ID + "/messages"

	if w := a.do(t, asCustomer, http.MethodPost, path, map[string]string{"content": " \r\n "}); w.Code != http.StatusBadRequest {
		t.Fatalf("blank message status=%d", w.Code)
	}
	if w := a.do(t, asCustomer, http.MethodPost, path, map[string]string{"content": strings.Repeat("å", services.MaxMessageRunes+1)}); w.Code != http.StatusBadRequest || errorCode(t, w) != ErrCodeValidation {
		t.Fatalf("long message status=%d body=%s", w.Code, w.Body.String())
	}
	if w := a.do(t, asOutsider, http.MethodPost, path, map[string]string{"content": "Hei"}); w.Code != http.StatusNotFound {
		t.Fatalf("outsider post status=%d", w.Code)
	}

	for _, msg := range []string{"Hei! Er det parkering?", "Kan vi starte 10:15?"} {
		if w := a.do(t, asCustomer, http.MethodPost, path, map[string]string{"content": msg}); w.Code != http.StatusCreated {
			t.Fatalf("post status=%d body=%s", w.Code, w.Body.String())
		}
	}

	w := a.do(t, asStylist, http.MethodGet, path+"?page_size=1", nil)
	etag := w.Header().Get("ETag")
	var page ListMessagesResponse
	decode(t, w, &page)
	if w.Code != http.StatusOK || etag == "" || len(page.Messages) != 1 || page.Pagination.Total != 2 || !page.Pagination.HasNext {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}
	if page.Messages[0].Content != "Hei! Er det parkering?" {
		t.Fatalf("oldest first expected, got %q", page.Messages[0].Content)
	}
	if w := a.do(t, asStylist, http.MethodGet, path+"?page_size=1", nil, "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("conditional list status=%d", w.Code)
	}

	w = a.do(t, asStylist, http.MethodPost, path+"/read", nil)
	var mr MarkReadResponse
	decode(t, w, &mr)
	if w.Code != http.StatusOK || mr.Marked != 2 {
		t.Fatalf("read status=%d body=%s", w.Code, w.Body.String())
	}
	w = a.do(t, asStylist, http.MethodPost, path+"/read", nil)
	decode(t, w, &mr)
	if mr.Marked != 0 {
		t.Fatalf("second read marked %d", mr.Marked)
	}

	if w := a.do(t, asAdmin, http.MethodGet, path, nil); w.Code != http.StatusOK {
		t.Fatalf("admin read status=%d", w.Code)
	}
	if w := a.do(t, asOutsider, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
		t.Fatalf("outsider list status=%d", w.Code)
	}
}
