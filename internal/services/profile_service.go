package services

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/geo"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	FullName string
	Email    string
	Phone    string
	Bio      string
}

// AddressInput describes a new address.
type AddressInput struct {
	Street     string
	PostalCode string
	City       string
	Lat        float64
	Lng        float64
	Primary    bool
}

// ProfileService manages marketplace accounts and their addresses.
type ProfileService struct {
	DB     *gorm.DB
	Events events.Publisher
}

var (
	postalCodeRE = regexp.MustCompile(`^\d{4}$`)
	phoneRE      = regexp.MustCompile(`^\+?[0-9 ]{8,16}$`)
)

// Upsert creates the caller's profile on first use and updates name, phone
// and bio afterwards. Role and email are fixed at creation.
func (s *ProfileService) Upsert(ctx context.Context, actor Actor, in ProfileInput) (*domain.Profile, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "Upsert",
		trace.WithAttributes(attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	if actor.ID == "" || !actor.Role.Valid() {
		return nil, ErrForbidden
	}
	name := normalizeLine(in.FullName)
	if name == "" || runeLen(name) > 120 {
		return nil, invalid("full_name", "must be 1..120 characters")
	}
	phone := normalizeLine(in.Phone)
	if phone != "" && !phoneRE.MatchString(phone) {
		return nil, invalid("phone", "invalid phone number")
	}
	bio := sanitizeText(in.Bio)
	if runeLen(bio) > 2000 {
		return nil, invalid("bio", "must be at most 2000 characters")
	}

	existing, err := repo.GetProfile(ctx, s.DB, actor.ID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	p := &domain.Profile{ID: actor.ID, Role: actor.Role, FullName: name, Phone: phone, Bio: bio}
	if existing != nil {
		p.Role, p.Email, p.CreatedAt = existing.Role, existing.Email, existing.CreatedAt
	} else {
		addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
		if err != nil || addr.Name != "" {
			return nil, invalid("email", "invalid email address")
		}
		p.Email = strings.ToLower(addr.Address)
	}
	if err := repo.UpsertProfile(ctx, s.DB, p); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if existing == nil {
		emit(ctx, s.Events, events.RKProfileCreated, events.ProfileCreated{ProfileID: p.ID, Role: string(p.Role)})
	}
	return repo.GetProfile(ctx, s.DB, p.ID)
}

// Get returns a profile.
func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("profile.id", id)),
	)
	defer span.End()

	p, err := repo.GetProfile(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	return p, nil
}

// AddAddress stores an address for the caller. The first address becomes
// the primary one.
func (s *ProfileService) AddAddress(ctx context.Context, profileID string, in AddressInput) (*domain.Address, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "AddAddress",
		trace.WithAttributes(attribute.String("profile.id", profileID)),
	)
	defer span.End()

	if _, err := repo.GetProfile(ctx, s.DB, profileID); err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	street, city := normalizeLine(in.Street), normalizeLine(in.City)
	switch {
	case street == "" || runeLen(street) > 255:
		return nil, invalid("street", "must be 1..255 characters")
	case !postalCodeRE.MatchString(strings.TrimSpace(in.PostalCode)):
		return nil, invalid("postal_code", "must be four digits")
	case city == "" || runeLen(city) > 120:
		return nil, invalid("city", "must be 1..120 characters")
	case !(geo.Point{Lat: in.Lat, Lng: in.Lng}).Valid():
		return nil, invalid("lat", "coordinates out of range")
	}
	a := &domain.Address{
		ProfileID:  profileID,
		Street:     street,
		PostalCode: strings.TrimSpace(in.PostalCode),
		City:       titleStart(city),
		Lat:        in.Lat,
		Lng:        in.Lng,
		IsPrimary:  in.Primary,
	}
	if err := repo.CreateAddress(ctx, s.DB, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Addresses lists the caller's addresses, primary first.
func (s *ProfileService) Addresses(ctx context.Context, profileID string) ([]domain.Address, error) {
	ctx, span := otel.Tracer("services/ProfileService").Start(ctx, "Addresses",
		trace.WithAttributes(attribute.String("profile.id", profileID)),
	)
	defer span.End()
	return repo.ListAddresses(ctx, s.DB, profileID)
}
