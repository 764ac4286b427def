package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

func TestServices_CreatePublishSearch(t *testing.T) {
	a := newTestAPI(t)
	body := map[string]any{
		"title":            "balayage og toning", "category": "Hair", "price_ore": 150000,
		"duration_minutes": 150, "at_stylist_place": true,
	}

	if w := a.do(t, asCustomer, http.MethodPost, "/services", body); w.Code != http.StatusForbidden {
		t.Fatalf("customer create status=%d", w.Code)
	}
	bad := map[string]any{"title": "x", "category": "hair", "price_ore": 0, "duration_minutes": 60, "at_stylist_place": true}
	w := a.do(t, asStylist, http.MethodPost, "/services", bad)
	var er ErrorResponse
	decode(t, w, &er)
	if w.Code != http.StatusBadRequest || er.Details == nil || er.Details.Field != "price_ore" {
		t.Fatalf("zero price status=%d body=%s", w.Code, w.Body.String())
	}

	w = a.do(t, asStylist, http.MethodPost, "/services", body)
	var svc domain.Service
	decode(t, w, &svc)
	if w.Code != http.StatusCreated || svc.Published || svc.Title != "Balayage og toning" {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}

	// Drafts are visible to the owner only.
	if w := a.do(t, anonymous, http.MethodGet, "/services/"+svc.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("anonymous draft status=%d", w.Code)
	}
	if w := a.do(t, asStylist, http.MethodGet, "/services/"+svc.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("owner draft status=%d", w.Code)
	}

	if w := a.do(t, asStylist, http.MethodPut, "/services/"+svc.ID+"/published", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing published status=%d", w.Code)
	}
	if w := a.do(t, asStylist, http.MethodPut, "/services/"+svc.ID+"/published", map[string]any{"published": true}); w.Code != http.StatusOK {
		t.Fatalf("publish status=%d body=%s", w.Code, w.Body.String())
	}

	w = a.do(t, anonymous, http.MethodGet, "/services?q=balayage", nil)
	var res ListServicesResponse
	decode(t, w, &res)
	if w.Code != http.StatusOK || len(res.Services) != 1 || res.Services[0].ID != svc.ID {
		t.Fatalf("search status=%d body=%s", w.Code, w.Body.String())
	}

	w = a.do(t, anonymous, http.MethodGet, "/services?max_price=100000", nil)
	decode(t, w, &res)
	for _, v := range res.Services {
		if v.PriceOre > 100000 {
			t.Fatalf("max_price ignored: %+v", v)
		}
	}

	body["price_ore"] = 90000
	w = a.do(t, asStylist, http.MethodPut, "/services/"+svc.ID, body)
	decode(t, w, &svc)
	if w.Code != http.StatusOK || svc.PriceOre != 90000 {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}
	if w := a.do(t, caller{"sty2", domain.RoleStylist}, http.MethodPut, "/services/"+svc.ID, body); w.Code != http.StatusNotFound {
		t.Fatalf("foreign update status=%d", w.Code)
	}
}

func TestSearchServices_QueryValidation(t *testing.T) {
	a := newTestAPI(t)
	for _, q := range []string{
		"min_price=abc",
		"max_price=-5",
		"lat=59.9",
		"lat=59.9&lng=x",
		"lat=59.9&lng=10.7&radius_km=far",
	} {
		if w := a.do(t, anonymous, http.MethodGet, "/services?"+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s => %d, want 400", q, w.Code)
		}
	}
	w := a.do(t, anonymous, http.MethodGet, "/services?lat=59.91&lng=10.75&radius_km=5&page_size=5", nil)
	var res ListServicesResponse
	decode(t, w, &res)
	if w.Code != http.StatusOK || res.Pagination.PageSize != 5 {
		t.Fatalf("geo search status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestProfile_PutGetAndAddress(t *testing.T) {
	a := newTestAPI(t)
	newcomer := caller{"kari", domain.RoleCustomer}

	if w := a.do(t, newcomer, http.MethodGet, "/me/profile", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing profile status=%d", w.Code)
	}
	if w := a.do(t, newcomer, http.MethodPost, "/me/addresses", map[string]any{"street": "Storgata 1", "postal_code": "0155", "city": "Oslo"}); w.Code != http.StatusNotFound {
		t.Fatalf("address before profile status=%d body=%s", w.Code, w.Body.String())
	}

	w := a.do(t, newcomer, http.MethodPut, "/me/profile", map[string]any{"full_name": "Kari Nordmann", "email": "kari@example.no"})
	var p domain.Profile
	decode(t, w, &p)
	if w.Code != http.StatusOK || p.ID != "kari" || p.Role != domain.RoleCustomer {
		t.Fatalf("put status=%d body=%s", w.Code, w.Body.String())
	}
	if w := a.do(t, caller{"ola", domain.RoleCustomer}, http.MethodPut, "/me/profile", map[string]any{"full_name": "Ola", "email": "KARI@example.no"}); w.Code != http.StatusConflict {
		t.Fatalf("email reuse status=%d body=%s", w.Code, w.Body.String())
	}

	if w := a.do(t, newcomer, http.MethodPost, "/me/addresses", map[string]any{"street": "Storgata 1", "postal_code": "155", "city": "Oslo"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad postal code status=%d", w.Code)
	}
	w = a.do(t, newcomer, http.MethodPost, "/me/addresses", map[string]any{
		"street": "Thorvald Meyers gate 12", "postal_code": "0555", "city": "Oslo", "lat": 59.9225, "lng": 10.759, "primary": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("address status=%d body=%s", w.Code, w.Body.String())
	}

	w = a.do(t, newcomer, http.MethodGet, "/me/profile", nil)
	var pr ProfileResponse
	decode(t, w, &pr)
	if w.Code != http.StatusOK || pr.Profile == nil || len(pr.Addresses) != 1 || !pr.Addresses[0].IsPrimary {
		t.Fatalf("get status=%d body=%s", w.Code, w.Body.String())
	}
}
