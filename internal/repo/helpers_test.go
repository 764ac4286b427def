package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// newTestDB opens a unique in-memory database per test. With migrate=true
// the full schema is created and foreign keys are enforced.
func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
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
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, id string, role domain.Role) *domain.Profile {
	t.Helper()
	p := &domain.Profile{ID: id, Role: role, FullName: "Name " + id, Email: id + "@example.com"}
	if err := UpsertProfile(context.Background(), db, p); err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
	return p
}

func seedService(t *testing.T, db *gorm.DB, id, stylistID string, price int64, published bool) *domain.Service {
	t.Helper()
	s := &domain.Service{
		ID:       id, StylistID: stylistID, Title: "Service " + id, Category: domain.CategoryHair,
		PriceOre: price, DurationMinutes: 60, AtStylistPlace: true, Published: published,
	}
	if err := CreateService(context.Background(), db, s); err != nil {
		t.Fatalf("seed service %s: %v", id, err)
	}
	return s
}

func seedBooking(t *testing.T, db *gorm.DB, id, customerID, stylistID string, start time.Time, status domain.BookingStatus) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		ID:        id, CustomerID: customerID, StylistID: stylistID,
		StartTime: start.UTC(), EndTime: start.UTC().Add(time.Hour),
		Status:    status, Location: domain.LocationStylist, TotalOre: 50000,
	}
	if err := CreateBooking(context.Background(), db, b); err != nil {
		t.Fatalf("seed booking %s: %v", id, err)
	}
	return b
}
