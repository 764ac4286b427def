// Package seed fills a database with a consistent marketplace for
// development: profiles with Oslo-area addresses, services, discounts,
// affiliate links, bookings in every status with matching payments,
// refunds and commissions, reviews and booking chats.
//
// Run is idempotent: when the seed admin already exists it does nothing
// unless Reset is set. All rows are written in one transaction, so a failed
// run leaves the database untouched.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
	"github.com/tbourn/nabostylisten-backend/internal/services"
)

// AdminEmail marks a seeded database.
const AdminEmail = "admin@nabostylisten.no"

// MinReviewsPerService is guaranteed for every published service.
const MinReviewsPerService = 3

// Options controls a seed run. Zero values take defaults.
type Options struct {
	Seed               uint64
	Stylists           int
	Customers          int
	Reset              bool
	PlatformFeePercent int
	Now                func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Stylists <= 0 {
		o.Stylists = 8
	}
	if o.Customers <= 0 {
		o.Customers = 20
	}
	if o.PlatformFeePercent <= 0 {
		o.PlatformFeePercent = 20
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Report counts what a run created.
type Report struct {
	Skipped        bool
	Profiles       int
	Addresses      int
	Services       int
	Discounts      int
	AffiliateLinks int
	Bookings       int
	Payments       int
	Refunds        int
	Commissions    int
	Reviews        int
	Messages       int
}

type seeder struct {
	db  *gorm.DB
	rng *rand.Rand
	now time.Time
	fee int

	admin     domain.Profile
	stylists  []domain.Profile
	customers []domain.Profile
	addresses map[string]domain.Address
	services  map[string][]domain.Service
	published []domain.Service
	links     []domain.AffiliateLink
	welcome   *domain.Discount
	summer    *domain.Discount

	completed   []*domain.Booking
	reviewed    map[string]int
	pastSlots   map[string]int
	futureSlots map[string]int

	report Report
}

// Run seeds db according to opts.
func Run(ctx context.Context, db *gorm.DB, opts Options) (Report, error) {
	opts = opts.withDefaults()

	if opts.Reset {
		if err := Reset(ctx, db); err != nil {
			return Report{}, fmt.Errorf("reset: %w", err)
		}
		log.Info().Msg("seed: database reset")
	} else if _, err := repo.GetProfileByEmail(ctx, db, AdminEmail); err == nil {
		log.Info().Str("email", AdminEmail).Msg("seed: data already present, skipping")
		return Report{Skipped: true}, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return Report{}, err
	}

	s := &seeder{
		rng:         rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		now:         opts.Now().UTC(),
		fee:         opts.PlatformFeePercent,
		addresses:   make(map[string]domain.Address),
		services:    make(map[string][]domain.Service),
		reviewed:    make(map[string]int),
		pastSlots:   make(map[string]int),
		futureSlots: make(map[string]int),
	}
	steps := []struct {
		name string
		fn   func(context.Context, Options) error
	}{
		{"profiles", s.seedProfiles},
		{"services", s.seedServices},
		{"discounts", s.seedDiscounts},
		{"affiliate links", s.seedAffiliateLinks},
		{"bookings", s.seedBookings},
		{"reviews", s.seedReviews},
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s.db = tx
		for _, st := range steps {
			start := time.Now()
			if err := st.fn(ctx, opts); err != nil {
				return fmt.Errorf("seed %s: %w", st.name, err)
			}
			log.Info().Str("step", st.name).Dur("took", time.Since(start)).Msg("seed: step done")
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	log.Info().
		Int("profiles", s.report.Profiles).
		Int("services", s.report.Services).
		Int("bookings", s.report.Bookings).
		Int("reviews", s.report.Reviews).
		Msg("seed: complete")
	return s.report, nil
}

// resetOrder lists every model with referencing tables before the tables
// they reference.
var resetOrder = []any{
	&domain.ChatMessage{},
	&domain.Chat{},
	&domain.ConsumedEvent{},
	&domain.Idempotency{},
	&domain.AffiliateCommission{},
	&domain.Review{},
	&domain.DiscountUsage{},
	&domain.Refund{},
	&domain.Payment{},
	&domain.BookingService{},
	&domain.Booking{},
	&domain.AffiliateLink{},
	&domain.Discount{},
	&domain.Service{},
	&domain.Address{},
	&domain.Profile{},
}

// Reset deletes every row of every table, children first.
func Reset(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range resetOrder {
			stmt := &gorm.Statement{DB: tx}
			if err := stmt.Parse(m); err != nil {
				return fmt.Errorf("parse %T: %w", m, err)
			}
			if err := tx.Exec("DELETE FROM " + stmt.Quote(stmt.Table)).Error; err != nil {
				return fmt.Errorf("clear %s: %w", stmt.Table, err)
			}
		}
		return nil
	})
}

func (s *seeder) pick(n int) int { return s.rng.IntN(n) }

func (s *seeder) name(i int) string {
	return firstNames[(i*7+s.pick(3))%len(firstNames)] + " " + lastNames[s.pick(len(lastNames))]
}

func (s *seeder) createProfile(ctx context.Context, role domain.Role, name, email string) (domain.Profile, error) {
	p := domain.Profile{
		ID:       uuid.NewString(),
		Role:     role,
		FullName: name,
		Email:    email,
		Phone:    fmt.Sprintf("+47 %d%02d %02d %03d", 4+s.pick(6), s.pick(100), s.pick(100), s.pick(1000)),
	}
	if role == domain.RoleStylist {
		p.Bio = "Frisør og stylist med lang erfaring fra salonger i Oslo."
	}
	if err := repo.UpsertProfile(ctx, s.db, &p); err != nil {
		return p, err
	}
	s.report.Profiles++
	return p, nil
}

func (s *seeder) addAddress(ctx context.Context, p domain.Profile, i int) error {
	a := osloAreas[i%len(osloAreas)]
	addr := domain.Address{
		ProfileID:  p.ID,
		Street:     fmt.Sprintf("%s %d", a.street, 1+s.pick(80)),
		PostalCode: a.postalCode,
		City:       a.city,
		Lat:        a.lat + (s.rng.Float64()-0.5)*0.01,
		Lng:        a.lng + (s.rng.Float64()-0.5)*0.02,
		IsPrimary:  true,
	}
	if err := repo.CreateAddress(ctx, s.db, &addr); err != nil {
		return err
	}
	s.addresses[p.ID] = addr
	s.report.Addresses++
	return nil
}

func (s *seeder) seedProfiles(ctx context.Context, o Options) error {
	admin, err := s.createProfile(ctx, domain.RoleAdmin, "Nabostylisten Drift", AdminEmail)
	if err != nil {
		return err
	}
	s.admin = admin
	for i := 0; i < o.Stylists; i++ {
		p, err := s.createProfile(ctx, domain.RoleStylist, s.name(i), fmt.Sprintf("stylist%02d@seed.nabostylisten.no", i+1))
		if err != nil {
			return err
		}
		if err := s.addAddress(ctx, p, i); err != nil {
			return err
		}
		s.stylists = append(s.stylists, p)
	}
	for i := 0; i < o.Customers; i++ {
		p, err := s.createProfile(ctx, domain.RoleCustomer, s.name(i+o.Stylists), fmt.Sprintf("kunde%02d@seed.nabostylisten.no", i+1))
		if err != nil {
			return err
		}
		if err := s.addAddress(ctx, p, i+3); err != nil {
			return err
		}
		s.customers = append(s.customers, p)
	}
	return nil
}

// seedServices gives every stylist three offerings. Every other stylist keeps
// the last one as an unpublished draft.
func (s *seeder) seedServices(ctx context.Context, _ Options) error {
	for i, st := range s.stylists {
		for k := 0; k < 3; k++ {
			off := offerings[(i*3+k)%len(offerings)]
			svc := domain.Service{
				StylistID:       st.ID,
				Title:           off.title,
				Description:     off.description,
				Category:        off.category,
				PriceOre:        off.priceOre,
				DurationMinutes: off.minutes,
				AtStylistPlace:  true,
				AtCustomerPlace: off.atCustomer,
				Published:       !(k == 2 && i%2 == 1),
			}
			if err := repo.CreateService(ctx, s.db, &svc); err != nil {
				return err
			}
			s.report.Services++
			s.services[st.ID] = append(s.services[st.ID], svc)
			if svc.Published {
				s.published = append(s.published, svc)
			}
		}
	}
	return nil
}

func (s *seeder) seedDiscounts(ctx context.Context, _ Options) error {
	maxUses := 100
	from, to := s.now.AddDate(0, 0, -30), s.now.AddDate(0, 0, 60)
	expiredFrom, expiredTo := s.now.AddDate(0, -3, 0), s.now.AddDate(0, 0, -7)
	all := []*domain.Discount{
		{Code: "VELKOMMEN20", Description: "20 % på første bestilling", Kind: domain.DiscountPercent, Value: 20, MaxUsesPerUser: 1, Active: true},
		{Code: "SOMMER150", Description: "150 kr avslag over 600 kr", Kind: domain.DiscountFixed, Value: 15000, MinOrderOre: 60000, MaxUses: &maxUses, MaxUsesPerUser: 2, ValidFrom: &from, ValidTo: &to, Active: true},
		{Code: "VINTER10", Description: "Utløpt vinterkampanje", Kind: domain.DiscountPercent, Value: 10, MaxUsesPerUser: 1, ValidFrom: &expiredFrom, ValidTo: &expiredTo, Active: true},
		{Code: "PAUSE50", Description: "Deaktivert", Kind: domain.DiscountPercent, Value: 50, MaxUsesPerUser: 1, Active: false},
	}
	for _, d := range all {
		if err := repo.CreateDiscount(ctx, s.db, d); err != nil {
			return err
		}
		s.report.Discounts++
	}
	s.welcome, s.summer = all[0], all[1]
	return nil
}

// seedAffiliateLinks gives every third stylist a referral code.
func (s *seeder) seedAffiliateLinks(ctx context.Context, _ Options) error {
	for i, st := range s.stylists {
		if i%3 != 0 {
			continue
		}
		l := domain.AffiliateLink{
			StylistID:         st.ID,
			Code:              fmt.Sprintf("%s%04d", codePrefix(st.FullName), 1000+s.pick(9000)),
			CommissionPercent: services.DefaultCommissionPercent,
			Clicks:            int64(s.pick(200)),
			Active:            true,
		}
		if err := repo.CreateAffiliateLink(ctx, s.db, &l); err != nil {
			return err
		}
		s.links = append(s.links, l)
		s.report.AffiliateLinks++
	}
	return nil
}

// codePrefix keeps the first four ASCII letters of the first name.
func codePrefix(name string) string {
	out := make([]byte, 0, 4)
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			r -= 'a' - 'A'
		case r >= 'A' && r <= 'Z':
		case r == ' ':
			if len(out) > 0 {
				return string(out)
			}
			continue
		default:
			continue
		}
		out = append(out, byte(r))
		if len(out) == 4 {
			break
		}
	}
	if len(out) == 0 {
		return "NABO"
	}
	return string(out)
}
