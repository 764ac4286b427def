// Package repotest provides database fixtures for tests in other packages.
package repotest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

// NewDB opens a migrated in-memory database unique to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", name, uuid.NewString()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// Profile inserts a profile with a predictable name and email.
func Profile(t testing.TB, db *gorm.DB, id string, role domain.Role) *domain.Profile {
	t.Helper()
	p := &domain.Profile{ID: id, Role: role, FullName: "Name " + id, Email: id + "@example.com"}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
	return p
}

// Address inserts a primary address for profileID.
func Address(t testing.TB, db *gorm.DB, id, profileID string, lat, lng float64) *domain.Address {
	t.Helper()
	a := &domain.Address{ID: id, ProfileID: profileID, Street: "Storgata 1", PostalCode: "0155", City: "Oslo", Lat: lat, Lng: lng, IsPrimary: true}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed address %s: %v", id, err)
	}
	return a
}

// Service inserts a published service bookable at the stylist's place and
// the customer's place.
func Service(t testing.TB, db *gorm.DB, id, stylistID string, priceOre int64, minutes int) *domain.Service {
	t.Helper()
	s := &domain.Service{
		ID:       id, StylistID: stylistID, Title: "Service " + id, Category: domain.CategoryHair,
		PriceOre: priceOre, DurationMinutes: minutes, AtStylistPlace: true, AtCustomerPlace: true, Published: true,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed service %s: %v", id, err)
	}
	return s
}

// Booking inserts a booking with one line item for serviceID and, when
// payStatus is non-empty, its payment.
func Booking(t testing.TB, db *gorm.DB, id, customerID, stylistID, serviceID string, start time.Time, status domain.BookingStatus, payStatus domain.PaymentStatus, amountOre int64) *domain.Booking {
	t.Helper()
	start = start.UTC()
	b := &domain.Booking{
		ID:       id, CustomerID: customerID, StylistID: stylistID, StartTime: start, EndTime: start.Add(time.Hour),
		Status:   status, Location: domain.LocationStylist, TotalOre: amountOre,
		Services: []domain.BookingService{{ID: id + "-s", ServiceID: serviceID, Title: "Service " + serviceID, PriceOre: amountOre, DurationMinutes: 60}},
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed booking %s: %v", id, err)
	}
	if payStatus != "" {
		p := &domain.Payment{
			ID:          "pay-" + id, BookingID: id, Provider: "fake", ProviderPaymentID: "intent-" + id, Currency: domain.CurrencyNOK,
			OriginalOre: amountOre, FinalOre: amountOre, Status: payStatus,
		}
		if payStatus != domain.PaymentRequiresCapture && payStatus != domain.PaymentCancelled {
			p.CapturedOre = amountOre
		}
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed payment %s: %v", id, err)
		}
	}
	return b
}
