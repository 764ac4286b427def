// Package domain defines the persistence models of the marketplace: profiles,
// addresses, services, bookings, payments, discounts, reviews, affiliates and
// booking chats. These types are mapped with GORM and shared by the repo and
// services layers.
//
// Money is always stored as integer øre (1/100 NOK) to avoid float rounding.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Role names a profile's capability set.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStylist  Role = "stylist"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStylist, RoleAdmin:
		return true
	}
	return false
}

// Profile is a marketplace account. Customers book, stylists offer services,
// admins operate the back-office.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), equal to the auth subject.
//   - Role: customer, stylist or admin (enforced by DB constraint).
//   - Email: unique contact address used for transactional email.
type Profile struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Role      Role           `json:"role"       gorm:"type:varchar(16);not null;index;check:role IN ('customer','stylist','admin')"`
	FullName  string         `json:"full_name"  gorm:"type:varchar(120);not null"`
	Email     string         `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_profiles_email"`
	Phone     string         `json:"phone,omitempty" gorm:"type:varchar(32)"`
	Bio       string         `json:"bio,omitempty"   gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Address is a postal address with a geographic point. Stylists use their
// primary address as the place where services at the stylist are performed;
// customers use theirs for home visits.
type Address struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ProfileID  string    `json:"profile_id"  gorm:"type:char(36);not null;index:idx_addresses_profile"`
	Street     string    `json:"street"      gorm:"type:varchar(255);not null"`
	PostalCode string    `json:"postal_code" gorm:"type:varchar(16);not null"`
	City       string    `json:"city"        gorm:"type:varchar(120);not null"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	IsPrimary  bool      `json:"is_primary"  gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Profile Profile `json:"-" gorm:"foreignKey:ProfileID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Address.
func (Address) TableName() string { return "addresses" }

// Service categories offered on the marketplace.
const (
	CategoryHair     = "hair"
	CategoryNails    = "nails"
	CategoryMakeup   = "makeup"
	CategoryLashes   = "lashes"
	CategoryBrows    = "brows"
	CategoryWedding  = "wedding"
	CategorySkincare = "skincare"
)

// Categories lists every accepted service category.
var Categories = []string{
	CategoryHair, CategoryNails, CategoryMakeup, CategoryLashes,
	CategoryBrows, CategoryWedding, CategorySkincare,
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Service is a bookable offering owned by a stylist. Only published services
// are visible in the public catalog and bookable.
type Service struct {
	ID              string         `json:"id"               gorm:"type:char(36);primaryKey"`
	StylistID       string         `json:"stylist_id"       gorm:"type:char(36);not null;index:idx_services_stylist"`
	Title           string         `json:"title"            gorm:"type:varchar(120);not null"`
	Description     string         `json:"description"      gorm:"type:text"`
	Category        string         `json:"category"         gorm:"type:varchar(32);not null;index"`
	PriceOre        int64          `json:"price_ore"        gorm:"not null;check:price_ore > 0"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null;check:duration_minutes > 0"`
	AtCustomerPlace bool           `json:"at_customer_place" gorm:"not null;default:false"`
	AtStylistPlace  bool           `json:"at_stylist_place"  gorm:"not null"`
	Published       bool           `json:"published"        gorm:"not null;default:false;index"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`

	Stylist Profile `json:"-" gorm:"foreignKey:StylistID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Service.
func (Service) TableName() string { return "services" }

// Supports reports whether the service can be performed at loc.
func (s Service) Supports(loc Location) bool {
	switch loc {
	case LocationCustomer:
		return s.AtCustomerPlace
	case LocationStylist:
		return s.AtStylistPlace
	}
	return false
}
