package domain

import "time"

// DiscountKind selects how a discount's Value is interpreted.
type DiscountKind string

const (
	// DiscountPercent deducts Value percent (1..100) of the order total.
	DiscountPercent DiscountKind = "percent"
	// DiscountFixed deducts Value øre, capped at the order total.
	DiscountFixed DiscountKind = "fixed"
)

// Discount is a promotion code customers can apply when booking.
//
// Invariant: CurrentUses <= *MaxUses when MaxUses is set.
type Discount struct {
	ID             string       `json:"id"                gorm:"type:char(36);primaryKey"`
	Code           string       `json:"code"              gorm:"type:varchar(32);not null;uniqueIndex:ux_discounts_code"`
	Description    string       `json:"description"       gorm:"type:text"`
	Kind           DiscountKind `json:"kind"              gorm:"type:varchar(16);not null;check:kind IN ('percent','fixed')"`
	Value          int64        `json:"value"             gorm:"not null;check:value > 0"`
	MinOrderOre    int64        `json:"min_order_ore"     gorm:"not null;default:0"`
	MaxUses        *int         `json:"max_uses,omitempty"`
	CurrentUses    int          `json:"current_uses"      gorm:"not null;default:0"`
	MaxUsesPerUser int          `json:"max_uses_per_user" gorm:"not null;default:1"`
	ValidFrom      *time.Time   `json:"valid_from,omitempty"`
	ValidTo        *time.Time   `json:"valid_to,omitempty"`
	Active         bool         `json:"active"            gorm:"not null"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TableName returns the database table name for Discount.
func (Discount) TableName() string { return "discounts" }

// AmountFor returns the deduction for an order of orderOre. It never exceeds
// the order total.
func (d Discount) AmountFor(orderOre int64) int64 {
	var off int64
	switch d.Kind {
	case DiscountPercent:
		off = orderOre * d.Value / 100
	case DiscountFixed:
		off = d.Value
	}
	if off > orderOre {
		off = orderOre
	}
	if off < 0 {
		off = 0
	}
	return off
}

// Exhausted reports whether the global usage cap has been reached.
func (d Discount) Exhausted() bool {
	return d.MaxUses != nil && d.CurrentUses >= *d.MaxUses
}

// InWindow reports whether now falls inside the optional validity window.
func (d Discount) InWindow(now time.Time) bool {
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidTo != nil && now.After(*d.ValidTo) {
		return false
	}
	return true
}

// DiscountUsage records that a profile consumed a discount on a booking.
type DiscountUsage struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	DiscountID string    `json:"discount_id" gorm:"type:char(36);not null;index:idx_discount_usage,priority:1"`
	ProfileID  string    `json:"profile_id"  gorm:"type:char(36);not null;index:idx_discount_usage,priority:2"`
	BookingID  string    `json:"booking_id"  gorm:"type:char(36);not null;uniqueIndex:ux_discount_usage_booking"`
	CreatedAt  time.Time `json:"created_at"`

	Discount Discount `json:"-" gorm:"foreignKey:DiscountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DiscountUsage.
func (DiscountUsage) TableName() string { return "discount_usages" }
