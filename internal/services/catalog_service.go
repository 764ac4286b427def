// Package services – CatalogService
//
// CatalogService owns stylists' service offerings: it validates and
// normalizes input, enforces ownership, keeps the in-memory search index in
// sync with published services, and answers catalog queries combining text
// relevance, filters, distance and rating.
package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/geo"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
	"github.com/tbourn/nabostylisten-backend/internal/search"
)

// Service duration rules.
const (
	MinDurationMinutes  = 15
	MaxDurationMinutes  = 480
	DurationStepMinutes = 5

	defaultRadiusKm = 10
	maxRadiusKm     = 100
)

// Catalog sort keys.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortRating    = "rating"
	SortDistance  = "distance"
)

// ServiceInput is the editable part of a service.
type ServiceInput struct {
	Title           string
	Description     string
	Category        string
	PriceOre        int64
	DurationMinutes int
	AtCustomerPlace bool
	AtStylistPlace  bool
}

// SearchQuery filters and orders the public catalog.
type SearchQuery struct {
	Text        string
	Category    string
	StylistID   string
	MinPriceOre int64
	MaxPriceOre int64
	AtCustomer  bool
	Near        *geo.Point
	RadiusKm    float64
	Sort        string
	Page        int
	PageSize    int
}

// ServiceView is a catalog entry enriched for display.
type ServiceView struct {
	domain.Service
	StylistName string        `json:"stylist_name"`
	City        string        `json:"city,omitempty"`
	Rating      domain.Rating `json:"rating"`
	DistanceKm  *float64      `json:"distance_km,omitempty"`
	Score       float64       `json:"score,omitempty"`

	loc *geo.Point
}

// CatalogService manages services and the public catalog.
type CatalogService struct {
	DB    *gorm.DB
	Index *search.ServiceIndex
}

// NewCatalogService returns a CatalogService with an empty index. Call
// Reindex once at startup.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db, Index: search.NewIndex(nil)}
}

func validateService(in ServiceInput) (ServiceInput, error) {
	in.Title = titleStart(in.Title)
	in.Description = sanitizeText(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	switch {
	case in.Title == "" || runeLen(in.Title) > 120:
		return in, invalid("title", "must be 1..120 characters")
	case runeLen(in.Description) > 2000:
		return in, invalid("description", "must be at most 2000 characters")
	case !domain.ValidCategory(in.Category):
		return in, invalid("category", "unknown category")
	case in.PriceOre <= 0:
		return in, invalid("price_ore", "must be greater than zero")
	case in.DurationMinutes < MinDurationMinutes || in.DurationMinutes > MaxDurationMinutes:
		return in, invalid("duration_minutes", "must be between 15 and 480")
	case in.DurationMinutes%DurationStepMinutes != 0:
		return in, invalid("duration_minutes", "must be a multiple of 5")
	case !in.AtCustomerPlace && !in.AtStylistPlace:
		return in, invalid("location", "at least one location is required")
	}
	return in, nil
}

// Create adds an unpublished service owned by the calling stylist.
func (s *CatalogService) Create(ctx context.Context, actor Actor, in ServiceInput) (*domain.Service, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	if actor.Role != domain.RoleStylist {
		return nil, ErrForbidden
	}
	if _, err := repo.GetProfile(ctx, s.DB, actor.ID); err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	in, err := validateService(in)
	if err != nil {
		return nil, err
	}
	svc := &domain.Service{
		StylistID:       actor.ID,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		PriceOre:        in.PriceOre,
		DurationMinutes: in.DurationMinutes,
		AtCustomerPlace: in.AtCustomerPlace,
		AtStylistPlace:  in.AtStylistPlace,
	}
	if err := repo.CreateService(ctx, s.DB, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// Update rewrites the editable fields of the caller's service.
func (s *CatalogService) Update(ctx context.Context, actor Actor, id string, in ServiceInput) (*domain.Service, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("service.id", id), attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	in, err := validateService(in)
	if err != nil {
		return nil, err
	}
	svc := &domain.Service{
		ID:              id,
		StylistID:       actor.ID,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		PriceOre:        in.PriceOre,
		DurationMinutes: in.DurationMinutes,
		AtCustomerPlace: in.AtCustomerPlace,
		AtStylistPlace:  in.AtStylistPlace,
	}
	if err := repo.UpdateService(ctx, s.DB, svc); err != nil {
		return nil, notFound(err, ErrServiceNotFound)
	}
	out, err := repo.GetService(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrServiceNotFound)
	}
	if out.Published {
		s.reindex(ctx)
	}
	return out, nil
}

// SetPublished shows or hides the caller's service in the catalog.
func (s *CatalogService) SetPublished(ctx context.Context, actor Actor, id string, published bool) (*domain.Service, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "SetPublished",
		trace.WithAttributes(attribute.String("service.id", id), attribute.Bool("published", published)),
	)
	defer span.End()

	if err := repo.SetServicePublished(ctx, s.DB, id, actor.ID, published); err != nil {
		return nil, notFound(err, ErrServiceNotFound)
	}
	s.reindex(ctx)
	out, err := repo.GetService(ctx, s.DB, id)
	return out, notFound(err, ErrServiceNotFound)
}

// Get returns one service. Unpublished services are visible to their
// stylist and to admins only.
func (s *CatalogService) Get(ctx context.Context, viewer Actor, id string) (*ServiceView, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("service.id", id)),
	)
	defer span.End()

	svc, err := repo.GetService(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrServiceNotFound)
	}
	if !svc.Published && svc.StylistID != viewer.ID && !viewer.IsAdmin() {
		return nil, ErrServiceNotFound
	}
	views, err := s.enrich(ctx, []domain.Service{*svc})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Search answers a catalog query over published services.
func (s *CatalogService) Search(ctx context.Context, q SearchQuery) ([]ServiceView, int64, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("query", q.Text),
			attribute.String("sort", q.Sort),
			attribute.Int("page", q.Page),
			attribute.Int("page_size", q.PageSize),
		),
	)
	defer span.End()

	q.Text = strings.TrimSpace(q.Text)
	if q.Sort == "" {
		q.Sort = SortNewest
		if q.Text != "" {
			q.Sort = SortRelevance
		}
	}
	switch q.Sort {
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest, SortRating:
	case SortDistance:
		if q.Near == nil {
			return nil, 0, invalid("sort", "distance sort requires lat and lng")
		}
	default:
		return nil, 0, invalid("sort", "unknown sort key")
	}
	if q.Category != "" && !domain.ValidCategory(q.Category) {
		return nil, 0, invalid("category", "unknown category")
	}
	if q.MaxPriceOre > 0 && q.MinPriceOre > q.MaxPriceOre {
		return nil, 0, invalid("min_price", "must not exceed max_price")
	}
	if q.Near != nil {
		if !q.Near.Valid() {
			return nil, 0, invalid("lat", "coordinates out of range")
		}
		if q.RadiusKm <= 0 {
			q.RadiusKm = defaultRadiusKm
		}
		if q.RadiusKm > maxRadiusKm {
			q.RadiusKm = maxRadiusKm
		}
	}
	_, size, offset := pageBounds(q.Page, q.PageSize)

	f := repo.ServiceFilter{
		StylistID:   q.StylistID,
		Category:    q.Category,
		MinPriceOre: q.MinPriceOre,
		MaxPriceOre: q.MaxPriceOre,
		OnlyPublic:  true,
		AtCustomer:  q.AtCustomer,
	}
	var scores map[string]float64
	if q.Text != "" {
		hits := s.Index.TopK(q.Text, 0)
		scores = make(map[string]float64, len(hits))
		f.IDs = make([]string, 0, len(hits))
		for _, h := range hits {
			scores[h.ID] = h.Score
			f.IDs = append(f.IDs, h.ID)
		}
	}
	rows, err := repo.ListServices(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.enrich(ctx, rows)
	if err != nil {
		return nil, 0, err
	}

	var area *geo.Area
	if q.Near != nil {
		a := geo.NewArea(*q.Near, q.RadiusKm)
		area = &a
	}
	kept := views[:0]
	for _, v := range views {
		v.Score = scores[v.ID]
		if area != nil && !withinArea(&v, *area) {
			continue
		}
		kept = append(kept, v)
	}
	sortViews(kept, q.Sort)

	total := int64(len(kept))
	if offset >= len(kept) {
		return []ServiceView{}, total, nil
	}
	end := offset + size
	if end > len(kept) {
		end = len(kept)
	}
	return kept[offset:end], total, nil
}

// withinArea fills v.DistanceKm from the stylist's primary address. Home
// visits are measured the same way since the stylist travels from there.
func withinArea(v *ServiceView, area geo.Area) bool {
	if v.loc == nil {
		return false
	}
	d, ok := area.Contains(*v.loc)
	if !ok {
		return false
	}
	km := geo.RoundKm(d)
	v.DistanceKm = &km
	return true
}

func sortViews(v []ServiceView, key string) {
	sort.SliceStable(v, func(i, j int) bool {
		a, b := v[i], v[j]
		switch key {
		case SortRelevance:
			if a.Score != b.Score {
				return a.Score > b.Score
			}
		case SortPriceAsc:
			if a.PriceOre != b.PriceOre {
				return a.PriceOre < b.PriceOre
			}
		case SortPriceDesc:
			if a.PriceOre != b.PriceOre {
				return a.PriceOre > b.PriceOre
			}
		case SortRating:
			if a.Rating.Average != b.Rating.Average {
				return a.Rating.Average > b.Rating.Average
			}
			if a.Rating.Count != b.Rating.Count {
				return a.Rating.Count > b.Rating.Count
			}
		case SortDistance:
			da, db := distanceOf(a), distanceOf(b)
			if da != db {
				return da < db
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func distanceOf(v ServiceView) float64 {
	if v.DistanceKm == nil {
		return math.Inf(1)
	}
	return *v.DistanceKm
}

// enrich attaches stylist name, city, location and rating to each service.
func (s *CatalogService) enrich(ctx context.Context, rows []domain.Service) ([]ServiceView, error) {
	if len(rows) == 0 {
		return []ServiceView{}, nil
	}
	stylistIDs := make([]string, 0, len(rows))
	serviceIDs := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		serviceIDs = append(serviceIDs, r.ID)
		if !seen[r.StylistID] {
			seen[r.StylistID] = true
			stylistIDs = append(stylistIDs, r.StylistID)
		}
	}
	profiles, err := repo.GetProfilesByIDs(ctx, s.DB, stylistIDs)
	if err != nil {
		return nil, err
	}
	addrs, err := repo.PrimaryAddresses(ctx, s.DB, stylistIDs)
	if err != nil {
		return nil, err
	}
	ratings, err := repo.ServiceRatings(ctx, s.DB, serviceIDs)
	if err != nil {
		return nil, err
	}
	out := make([]ServiceView, len(rows))
	for i, r := range rows {
		v := ServiceView{Service: r, StylistName: profiles[r.StylistID].FullName, Rating: ratings[r.ID]}
		if a, ok := addrs[r.StylistID]; ok {
			v.City = a.City
			v.loc = &geo.Point{Lat: a.Lat, Lng: a.Lng}
		}
		out[i] = v
	}
	return out, nil
}

// Reindex rebuilds the search index from every published service.
func (s *CatalogService) Reindex(ctx context.Context) error {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Reindex")
	defer span.End()

	rows, err := repo.ListServices(ctx, s.DB, repo.ServiceFilter{OnlyPublic: true})
	if err != nil {
		return err
	}
	views, err := s.enrich(ctx, rows)
	if err != nil {
		return err
	}
	docs := make([]search.Document, 0, len(views))
	for _, v := range views {
		docs = append(docs, search.Document{
			ID:   v.ID,
			Text: search.ServiceText(v.Title, v.Category, v.Description, v.StylistName, v.City),
		})
	}
	s.Index.Replace(docs)
	span.SetAttributes(attribute.Int("docs", len(docs)))
	return nil
}

func (s *CatalogService) reindex(ctx context.Context) {
	if err := s.Reindex(ctx); err != nil {
		log.Warn().Err(err).Msg("catalog reindex failed")
	}
}
