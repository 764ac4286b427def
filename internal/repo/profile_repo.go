// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for profiles and
// their addresses.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// UpsertProfile inserts p or, when a row with the same ID exists, updates
// its name, phone and bio. Role and email are only set on insert.
func UpsertProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "phone", "bio", "updated_at"}),
	}).Create(p).Error
}

// GetProfile fetches a profile by ID or returns ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByEmail fetches a profile by its unique email.
func GetProfileByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfilesByIDs returns the profiles with the given IDs keyed by ID.
func GetProfilesByIDs(ctx context.Context, db *gorm.DB, ids []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Profile
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// CreateAddress inserts an address. The first address of a profile becomes
// its primary one; a new primary address demotes the previous one.
func CreateAddress(ctx context.Context, db *gorm.DB, a *domain.Address) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Address{}).Where("profile_id = ?", a.ProfileID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			a.IsPrimary = true
		}
		if a.IsPrimary && n > 0 {
			if err := tx.Model(&domain.Address{}).
				Where("profile_id = ? AND is_primary = ?", a.ProfileID, true).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		return tx.Create(a).Error
	})
}

// ListAddresses returns a profile's addresses, primary first.
func ListAddresses(ctx context.Context, db *gorm.DB, profileID string) ([]domain.Address, error) {
	var out []domain.Address
	err := db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("is_primary desc, created_at asc").
		Find(&out).Error
	return out, err
}

// GetAddress fetches an address owned by profileID.
func GetAddress(ctx context.Context, db *gorm.DB, id, profileID string) (*domain.Address, error) {
	var a domain.Address
	if err := db.WithContext(ctx).Where("id = ? AND profile_id = ?", id, profileID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// PrimaryAddresses returns the primary address of each given profile keyed
// by profile ID. Profiles without one are absent from the map.
func PrimaryAddresses(ctx context.Context, db *gorm.DB, profileIDs []string) (map[string]domain.Address, error) {
	out := make(map[string]domain.Address, len(profileIDs))
	if len(profileIDs) == 0 {
		return out, nil
	}
	var rows []domain.Address
	if err := db.WithContext(ctx).
		Where("profile_id IN ? AND is_primary = ?", profileIDs, true).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, a := range rows {
		out[a.ProfileID] = a
	}
	return out, nil
}
