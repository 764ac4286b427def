package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func allModels() []any {
	return []any{
		&Profile{}, &Address{}, &Service{}, &Booking{}, &BookingService{},
		&Payment{}, &Refund{}, &Discount{}, &DiscountUsage{}, &Review{},
		&AffiliateLink{}, &AffiliateCommission{}, &Chat{}, &ChatMessage{},
		&Idempotency{}, &ConsumedEvent{},
	}
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Profile{}.TableName():             "profiles",
		Address{}.TableName():             "addresses",
		Service{}.TableName():             "services",
		Booking{}.TableName():             "bookings",
		BookingService{}.TableName():      "booking_services",
		Payment{}.TableName():             "payments",
		Refund{}.TableName():              "refunds",
		Discount{}.TableName():            "discounts",
		DiscountUsage{}.TableName():       "discount_usages",
		Review{}.TableName():              "reviews",
		AffiliateLink{}.TableName():       "affiliate_links",
		AffiliateCommission{}.TableName(): "affiliate_commissions",
		Chat{}.TableName():                "chats",
		ChatMessage{}.TableName():         "chat_messages",
		ConsumedEvent{}.TableName():       "consumed_events",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tc := range []struct {
		model any
		index string
	}{
		{&Profile{}, "ux_profiles_email"},
		{&Booking{}, "idx_bookings_stylist_time"},
		{&Payment{}, "ux_payments_booking"},
		{&Review{}, "ux_reviews_booking"},
		{&AffiliateLink{}, "ux_affiliate_code"},
		{&ChatMessage{}, "idx_chat_msgs"},
		{&Idempotency{}, "ux_user_scope_key"},
	} {
		if !m.HasIndex(tc.model, tc.index) {
			t.Fatalf("expected index %s on %T", tc.index, tc.model)
		}
	}

	now := time.Now().UTC()
	cust := &Profile{ID: "p1", Role: RoleCustomer, FullName: "Kari", Email: "kari@example.com"}
	sty := &Profile{ID: "p2", Role: RoleStylist, FullName: "Ola", Email: "ola@example.com"}
	for _, p := range []*Profile{cust, sty} {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("insert profile: %v", err)
		}
	}
	b := &Booking{
		ID:     "b1", CustomerID: "p1", StylistID: "p2", StartTime: now, EndTime: now.Add(time.Hour),
		Status: BookingPending, Location: LocationStylist, TotalOre: 50000,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	if err := db.Create(&Chat{ID: "c1", BookingID: "b1"}).Error; err != nil {
		t.Fatalf("insert chat: %v", err)
	}
	if err := db.Create(&ChatMessage{ID: "m1", ChatID: "c1", SenderID: "p1", Content: "hei"}).Error; err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if err := db.Create(&Payment{ID: "pay1", BookingID: "b1", Provider: "fake", Currency: CurrencyNOK,
		OriginalOre: 50000, FinalOre: 50000, Status: PaymentRequiresCapture}).Error; err != nil {
		t.Fatalf("insert payment: %v", err)
	}

	// Invalid status is rejected by the CHECK constraint.
	bad := &Booking{ID: "b2", CustomerID: "p1", StylistID: "p2", StartTime: now, EndTime: now,
		Status: "bogus", Location: LocationStylist}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected CHECK violation for unknown booking status")
	}

	// Duplicate payment per booking is rejected.
	if err := db.Create(&Payment{ID: "pay2", BookingID: "b1", Provider: "fake", Currency: CurrencyNOK,
		Status: PaymentRequiresCapture}).Error; err == nil {
		t.Fatalf("expected unique violation for second payment on booking")
	}

	// CASCADE: deleting the booking removes chat, messages and payment.
	if err := db.Delete(&Booking{}, "id = ?", "b1").Error; err != nil {
		t.Fatalf("delete booking: %v", err)
	}
	var cnt int64
	db.Unscoped().Model(&Chat{}).Where("booking_id = ?", "b1").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("expected chat to cascade-delete, got %d", cnt)
	}
	db.Model(&ChatMessage{}).Where("chat_id = ?", "c1").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("expected messages to cascade-delete, got %d", cnt)
	}
	db.Model(&Payment{}).Where("booking_id = ?", "b1").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("expected payment to cascade-delete, got %d", cnt)
	}
}

func TestRoleAndCategoryValidation(t *testing.T) {
	for _, r := range []Role{RoleCustomer, RoleStylist, RoleAdmin} {
		if !r.Valid() {
			t.Fatalf("%q should be valid", r)
		}
	}
	if Role("root").Valid() {
		t.Fatalf("unknown role should be invalid")
	}
	if !ValidCategory(CategoryHair) || ValidCategory("tattoo") {
		t.Fatalf("category validation mismatch")
	}
}

func TestServiceSupports(t *testing.T) {
	s := Service{AtStylistPlace: true}
	if !s.Supports(LocationStylist) || s.Supports(LocationCustomer) {
		t.Fatalf("Supports mismatch for stylist-only service")
	}
	if s.Supports("moon") {
		t.Fatalf("unknown location must not be supported")
	}
}
