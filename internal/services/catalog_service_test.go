package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/geo"
	"github.com/tbourn/nabostylisten-backend/internal/repo/repotest"
)

var (
	oslo   = geo.Point{Lat: 59.9139, Lng: 10.7522}
	bergen = geo.Point{Lat: 60.3913, Lng: 5.3221}
)

func newCatalog(t *testing.T) *CatalogService {
	t.Helper()
	db := repotest.NewDB(t)
	repotest.Profile(t, db, "sty-oslo", domain.RoleStylist)
	repotest.Profile(t, db, "sty-bergen", domain.RoleStylist)
	repotest.Profile(t, db, "cust", domain.RoleCustomer)
	repotest.Address(t, db, "a-oslo", "sty-oslo", oslo.Lat, oslo.Lng)
	repotest.Address(t, db, "a-bergen", "sty-bergen", bergen.Lat, bergen.Lng)
	return NewCatalogService(db)
}

func publish(t *testing.T, c *CatalogService, owner string, in ServiceInput) *domain.Service {
	t.Helper()
	ctx := context.Background()
	a := Actor{ID: owner, Role: domain.RoleStylist}
	s, err := c.Create(ctx, a, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.SetPublished(ctx, a, s.ID, true); err != nil {
		t.Fatalf("SetPublished: %v", err)
	}
	return s
}

func hair(title string, price int64) ServiceInput {
	return ServiceInput{Title: title, Category: "Hair", PriceOre: price, DurationMinutes: 60, AtStylistPlace: true}
}

func TestCatalogCreate_ValidatesAndStartsHidden(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	owner := Actor{ID: "sty-oslo", Role: domain.RoleStylist}

	s, err := c.Create(ctx, owner, ServiceInput{
		Title: "  balayage   og farge ", Category: "HAIR", PriceOre: 150000, DurationMinutes: 150, AtStylistPlace: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Title != "Balayage og farge" || s.Category != domain.CategoryHair || s.Published {
		t.Fatalf("service = %+v", s)
	}

	if _, err := c.Get(ctx, Actor{ID: "cust", Role: domain.RoleCustomer}, s.ID); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("hidden service visible to customer: %v", err)
	}
	if v, err := c.Get(ctx, owner, s.ID); err != nil || v.StylistName != "Name sty-oslo" || v.City != "Oslo" {
		t.Fatalf("owner Get = %+v, %v", v, err)
	}

	bad := []ServiceInput{
		{Title: "", Category: "hair", PriceOre: 1, DurationMinutes: 60, AtStylistPlace: true},
		{Title: "x", Category: "tattoo", PriceOre: 1, DurationMinutes: 60, AtStylistPlace: true},
		{Title: "x", Category: "hair", PriceOre: 0, DurationMinutes: 60, AtStylistPlace: true},
		{Title: "x", Category: "hair", PriceOre: 1, DurationMinutes: 10, AtStylistPlace: true},
		{Title: "x", Category: "hair", PriceOre: 1, DurationMinutes: 62, AtStylistPlace: true},
		{Title: "x", Category: "hair", PriceOre: 1, DurationMinutes: 60},
	}
	for i, in := range bad {
		if _, err := c.Create(ctx, owner, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: err = %v; want ErrInvalidInput", i, err)
		}
	}
	if _, err := c.Create(ctx, Actor{ID: "cust", Role: domain.RoleCustomer}, hair("x", 1)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer create err = %v", err)
	}
}

func TestCatalogUpdate_OwnerOnly(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	s := publish(t, c, "sty-oslo", hair("Klipp", 50000))

	if _, err := c.Update(ctx, Actor{ID: "sty-bergen", Role: domain.RoleStylist}, s.ID, hair("Kapret", 1)); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("foreign update err = %v", err)
	}
	got, err := c.Update(ctx, Actor{ID: "sty-oslo", Role: domain.RoleStylist}, s.ID, hair("klipp og vask", 65000))
	if err != nil || got.Title != "Klipp og vask" || got.PriceOre != 65000 || !got.Published {
		t.Fatalf("Update = %+v, %v", got, err)
	}
	if hits, _, _ := c.Search(ctx, SearchQuery{Text: "vask"}); len(hits) != 1 {
		t.Fatalf("index not refreshed after update, hits = %d", len(hits))
	}
}

func TestCatalogSearch_TextPriceAndPaging(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	publish(t, c, "sty-oslo", hair("Balayage", 150000))
	publish(t, c, "sty-oslo", hair("Herreklipp", 45000))
	publish(t, c, "sty-bergen", hair("Balayage deluxe", 200000))
	hidden, _ := c.Create(ctx, Actor{ID: "sty-bergen", Role: domain.RoleStylist}, hair("Balayage hemmelig", 1000))

	hits, total, err := c.Search(ctx, SearchQuery{Text: "balayage"})
	if err != nil || total != 2 {
		t.Fatalf("text search = %d, %v", total, err)
	}
	for _, h := range hits {
		if h.ID == hidden.ID {
			t.Fatalf("unpublished service returned")
		}
		if h.Score <= 0 {
			t.Fatalf("missing relevance score: %+v", h)
		}
	}
	if hits[0].Title != "Balayage" {
		t.Fatalf("closest match should rank first, got %q", hits[0].Title)
	}

	hits, total, _ = c.Search(ctx, SearchQuery{Sort: SortPriceAsc, PageSize: 2})
	if total != 3 || len(hits) != 2 || hits[0].PriceOre != 45000 || hits[1].PriceOre != 150000 {
		t.Fatalf("price sort = %d %+v", total, hits)
	}
	hits, _, _ = c.Search(ctx, SearchQuery{Sort: SortPriceAsc, PageSize: 2, Page: 2})
	if len(hits) != 1 || hits[0].PriceOre != 200000 {
		t.Fatalf("page 2 = %+v", hits)
	}
	_, total, _ = c.Search(ctx, SearchQuery{MinPriceOre: 100000, MaxPriceOre: 160000})
	if total != 1 {
		t.Fatalf("price band total = %d", total)
	}
	if _, total, _ := c.Search(ctx, SearchQuery{Text: "negler"}); total != 0 {
		t.Fatalf("no-hit query total = %d", total)
	}
}

func TestCatalogSearch_NearRestrictsAndSortsByDistance(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	publish(t, c, "sty-oslo", hair("Klipp Oslo", 50000))
	publish(t, c, "sty-bergen", hair("Klipp Bergen", 50000))

	near := geo.Point{Lat: 59.92, Lng: 10.76}
	hits, total, err := c.Search(ctx, SearchQuery{Near: &near, RadiusKm: 10, Sort: SortDistance})
	if err != nil || total != 1 || hits[0].StylistID != "sty-oslo" {
		t.Fatalf("near search = %+v, %d, %v", hits, total, err)
	}
	if hits[0].DistanceKm == nil || *hits[0].DistanceKm > 2 {
		t.Fatalf("distance = %v", hits[0].DistanceKm)
	}

	// Oslo to Bergen is about 300 km; the radius is capped below that.
	if _, total, _ := c.Search(ctx, SearchQuery{Near: &near, RadiusKm: 1000}); total != 1 {
		t.Fatalf("radius cap: total = %d", total)
	}
	if _, total, _ := c.Search(ctx, SearchQuery{}); total != 2 {
		t.Fatalf("unrestricted total = %d", total)
	}
}

func TestCatalogSearch_RejectsBadQueries(t *testing.T) {
	c := newCatalog(t)
	ctx := context.Background()
	bad := geo.Point{Lat: 95, Lng: 10}
	for _, q := range []SearchQuery{
		{Sort: "cheapest"},
		{Sort: SortDistance},
		{Category: "tattoo"},
		{MinPriceOre: 500, MaxPriceOre: 100},
		{Near: &bad},
	} {
		if _, _, err := c.Search(ctx, q); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("query %+v: err = %v", q, err)
		}
	}
}
