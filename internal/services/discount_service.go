package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

var discountCodeRE = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// DiscountInput describes a new discount code.
type DiscountInput struct {
	Code           string
	Description    string
	Kind           domain.DiscountKind
	Value          int64
	MinOrderOre    int64
	MaxUses        *int
	MaxUsesPerUser int
	ValidFrom      *time.Time
	ValidTo        *time.Time
}

// DiscountQuote is the outcome of applying a code to an order.
type DiscountQuote struct {
	Code        string `json:"code"`
	OrderOre    int64  `json:"order_ore"`
	DiscountOre int64  `json:"discount_ore"`
	FinalOre    int64  `json:"final_ore"`
}

// DiscountService manages promotion codes.
type DiscountService struct {
	DB  *gorm.DB
	Now Clock
}

// Create stores an active discount code.
func (s *DiscountService) Create(ctx context.Context, actor Actor, in DiscountInput) (*domain.Discount, error) {
	ctx, span := otel.Tracer("services/DiscountService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("discount.code", in.Code)),
	)
	defer span.End()

	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if !discountCodeRE.MatchString(code) {
		return nil, invalid("code", "must be 3..32 of A-Z, 0-9, _ or -")
	}
	switch in.Kind {
	case domain.DiscountPercent:
		if in.Value < 1 || in.Value > 100 {
			return nil, invalid("value", "percent must be between 1 and 100")
		}
	case domain.DiscountFixed:
		if in.Value <= 0 {
			return nil, invalid("value", "must be greater than zero")
		}
	default:
		return nil, invalid("kind", "must be percent or fixed")
	}
	if in.MinOrderOre < 0 {
		return nil, invalid("min_order_ore", "must be >= 0")
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		return nil, invalid("max_uses", "must be >= 1")
	}
	if in.MaxUsesPerUser == 0 {
		in.MaxUsesPerUser = 1
	}
	if in.MaxUsesPerUser < 0 {
		return nil, invalid("max_uses_per_user", "must be >= 1")
	}
	if in.ValidFrom != nil && in.ValidTo != nil && !in.ValidTo.After(*in.ValidFrom) {
		return nil, invalid("valid_to", "must be after valid_from")
	}

	d := &domain.Discount{
		Code:           code,
		Description:    sanitizeText(in.Description),
		Kind:           in.Kind,
		Value:          in.Value,
		MinOrderOre:    in.MinOrderOre,
		MaxUses:        in.MaxUses,
		MaxUsesPerUser: in.MaxUsesPerUser,
		ValidFrom:      utcPtr(in.ValidFrom),
		ValidTo:        utcPtr(in.ValidTo),
		Active:         true,
	}
	if err := repo.CreateDiscount(ctx, s.DB, d); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, invalid("code", "already exists")
		}
		return nil, err
	}
	return d, nil
}

// Validate previews code for a customer's order without consuming it.
func (s *DiscountService) Validate(ctx context.Context, customerID, code string, orderOre int64) (*DiscountQuote, error) {
	ctx, span := otel.Tracer("services/DiscountService").Start(ctx, "Validate",
		trace.WithAttributes(attribute.String("discount.code", code), attribute.Int64("order_ore", orderOre)),
	)
	defer span.End()

	if orderOre <= 0 {
		return nil, invalid("order_ore", "must be greater than zero")
	}
	d, err := lookupDiscount(ctx, s.DB, code)
	if err != nil {
		return nil, err
	}
	if err := checkDiscount(ctx, s.DB, d, customerID, orderOre, s.Now.now()); err != nil {
		return nil, err
	}
	off := d.AmountFor(orderOre)
	return &DiscountQuote{Code: d.Code, OrderOre: orderOre, DiscountOre: off, FinalOre: orderOre - off}, nil
}

func lookupDiscount(ctx context.Context, db *gorm.DB, code string) (*domain.Discount, error) {
	d, err := repo.GetDiscountByCode(ctx, db, code)
	if err != nil {
		return nil, notFound(err, ErrDiscountNotFound)
	}
	return d, nil
}

// checkDiscount applies every usage rule except the atomic global cap,
// which ConsumeDiscount enforces again inside the booking transaction.
func checkDiscount(ctx context.Context, db *gorm.DB, d *domain.Discount, customerID string, orderOre int64, now time.Time) error {
	reject := func(reason string) error { return &DiscountError{Code: d.Code, Reason: reason} }
	switch {
	case !d.Active:
		return reject(DiscountInactive)
	case d.ValidFrom != nil && now.Before(*d.ValidFrom):
		return reject(DiscountNotStarted)
	case !d.InWindow(now):
		return reject(DiscountExpired)
	case d.Exhausted():
		return reject(DiscountExhausted)
	case orderOre < d.MinOrderOre:
		return reject(DiscountMinOrder)
	}
	if d.MaxUsesPerUser > 0 && customerID != "" {
		n, err := repo.CountDiscountUsage(ctx, db, d.ID, customerID)
		if err != nil {
			return err
		}
		if n >= int64(d.MaxUsesPerUser) {
			return reject(DiscountPerUserLimit)
		}
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
