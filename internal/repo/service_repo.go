// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Service
// catalog.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// ServiceFilter narrows a catalog query. Zero values mean "no constraint".
type ServiceFilter struct {
	IDs         []string // restrict to these IDs (e.g. search hits)
	StylistID   string
	Category    string
	MinPriceOre int64
	MaxPriceOre int64
	OnlyPublic  bool
	AtCustomer  bool
}

// CreateService inserts a service with a fresh UUID.
func CreateService(ctx context.Context, db *gorm.DB, s *domain.Service) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	return db.WithContext(ctx).Create(s).Error
}

// UpdateService writes the editable columns of s, scoped to its stylist.
// Returns ErrNotFound when the row is missing or owned by someone else.
func UpdateService(ctx context.Context, db *gorm.DB, s *domain.Service) error {
	res := db.WithContext(ctx).
		Model(&domain.Service{}).
		Where("id = ? AND stylist_id = ?", s.ID, s.StylistID).
		Updates(map[string]any{
			"title":             s.Title,
			"description":       s.Description,
			"category":          s.Category,
			"price_ore":         s.PriceOre,
			"duration_minutes":  s.DurationMinutes,
			"at_customer_place": s.AtCustomerPlace,
			"at_stylist_place":  s.AtStylistPlace,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetServicePublished toggles catalog visibility, scoped to the stylist.
func SetServicePublished(ctx context.Context, db *gorm.DB, id, stylistID string, published bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Service{}).
		Where("id = ? AND stylist_id = ?", id, stylistID).
		Updates(map[string]any{"published": published, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetService fetches a service by ID.
func GetService(ctx context.Context, db *gorm.DB, id string) (*domain.Service, error) {
	var s domain.Service
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetServicesByIDs returns the services with the given IDs in request order.
// Missing IDs are skipped.
func GetServicesByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []domain.Service
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Service, len(rows))
	for _, s := range rows {
		byID[s.ID] = s
	}
	out := make([]domain.Service, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// ListServices returns every service matching f, newest first. Ordering by
// price, rating or distance is applied by the caller.
func ListServices(ctx context.Context, db *gorm.DB, f ServiceFilter) ([]domain.Service, error) {
	q := db.WithContext(ctx).Model(&domain.Service{})
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return nil, nil
		}
		q = q.Where("id IN ?", f.IDs)
	}
	if f.StylistID != "" {
		q = q.Where("stylist_id = ?", f.StylistID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.MinPriceOre > 0 {
		q = q.Where("price_ore >= ?", f.MinPriceOre)
	}
	if f.MaxPriceOre > 0 {
		q = q.Where("price_ore <= ?", f.MaxPriceOre)
	}
	if f.OnlyPublic {
		q = q.Where("published = ?", true)
	}
	if f.AtCustomer {
		q = q.Where("at_customer_place = ?", true)
	}
	var out []domain.Service
	err := q.Order("created_at desc, id asc").Find(&out).Error
	return out, err
}
