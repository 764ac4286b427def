// Package services – AffiliateService
//
// Stylists own one referral code each. Bookings made with a code earn the
// owner a share of the platform fee once they complete; admins mark the
// commissions paid out.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

const (
	// DefaultCommissionPercent is the share of the platform fee paid to
	// the link owner.
	DefaultCommissionPercent = 20

	codePrefixLen = 6
	codeAttempts  = 5
)

// AffiliateService manages affiliate links and commissions.
type AffiliateService struct {
	DB                *gorm.DB
	CommissionPercent int
	Now               Clock

	// digits returns the numeric suffix of a new code; nil uses math/rand.
	digits func() int
}

// NewAffiliateService returns a service paying DefaultCommissionPercent.
func NewAffiliateService(db *gorm.DB) *AffiliateService {
	return &AffiliateService{DB: db, CommissionPercent: DefaultCommissionPercent}
}

// AffiliateOverview is a link with its commissions.
type AffiliateOverview struct {
	Link        *domain.AffiliateLink        `json:"link"`
	Commissions []domain.AffiliateCommission `json:"commissions"`
	PendingOre  int64                        `json:"pending_ore"`
	PaidOre     int64                        `json:"paid_ore"`
}

// CreateLink issues the stylist's referral code. A stylist has at most one.
func (s *AffiliateService) CreateLink(ctx context.Context, actor Actor) (*domain.AffiliateLink, error) {
	ctx, span := otel.Tracer("services/AffiliateService").Start(ctx, "CreateLink",
		trace.WithAttributes(attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	if actor.Role != domain.RoleStylist {
		return nil, ErrForbidden
	}
	p, err := repo.GetProfile(ctx, s.DB, actor.ID)
	if err != nil {
		return nil, notFound(err, ErrProfileNotFound)
	}
	if _, err := repo.GetAffiliateLinkByStylist(ctx, s.DB, actor.ID); err == nil {
		return nil, ErrAffiliateExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	pct := s.CommissionPercent
	if pct <= 0 || pct > 100 {
		pct = DefaultCommissionPercent
	}
	now := s.Now.now()
	prefix := codePrefix(p.FullName)
	for i := 0; i < codeAttempts; i++ {
		l := &domain.AffiliateLink{
			StylistID:         actor.ID,
			Code:              fmt.Sprintf("%s%04d", prefix, s.nextDigits()),
			CommissionPercent: pct,
			Active:            true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		err := repo.CreateAffiliateLink(ctx, s.DB, l)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		// Either the code collided or a concurrent request created the link.
		if _, err := repo.GetAffiliateLinkByStylist(ctx, s.DB, actor.ID); err == nil {
			return nil, ErrAffiliateExists
		}
	}
	return nil, fmt.Errorf("affiliate code: %d collisions for prefix %s", codeAttempts, prefix)
}

func (s *AffiliateService) nextDigits() int {
	if s.digits != nil {
		return s.digits() % 10000
	}
	return rand.IntN(10000)
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// codePrefix folds a display name to at most six uppercase ASCII letters.
// Letters without a decomposition are spelled out (æ → AE, ø → O).
func codePrefix(name string) string {
	folded, _, err := transform.String(foldAccents, name)
	if err != nil {
		folded = name
	}
	folded = strings.NewReplacer("æ", "ae", "Æ", "AE", "ø", "o", "Ø", "O", "ß", "ss").Replace(folded)
	var b strings.Builder
	for _, r := range strings.ToUpper(folded) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == codePrefixLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "STYLE"
	}
	return b.String()
}

// Get returns the stylist's link.
func (s *AffiliateService) Get(ctx context.Context, actor Actor) (*domain.AffiliateLink, error) {
	ctx, span := otel.Tracer("services/AffiliateService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	l, err := repo.GetAffiliateLinkByStylist(ctx, s.DB, actor.ID)
	if err != nil {
		return nil, notFound(err, ErrAffiliateNotFound)
	}
	return l, nil
}

// TrackClick counts a visit through an active code and returns the link.
func (s *AffiliateService) TrackClick(ctx context.Context, code string) (*domain.AffiliateLink, error) {
	ctx, span := otel.Tracer("services/AffiliateService").Start(ctx, "TrackClick",
		trace.WithAttributes(attribute.String("affiliate.code", code)),
	)
	defer span.End()

	if strings.TrimSpace(code) == "" {
		return nil, ErrAffiliateNotFound
	}
	if err := repo.IncrementAffiliateClicks(ctx, s.DB, code); err != nil {
		return nil, notFound(err, ErrAffiliateNotFound)
	}
	l, err := repo.GetAffiliateLinkByCode(ctx, s.DB, code)
	if err != nil {
		return nil, notFound(err, ErrAffiliateNotFound)
	}
	return l, nil
}

// ListCommissions returns the stylist's link, its commissions and totals.
func (s *AffiliateService) ListCommissions(ctx context.Context, actor Actor) (*AffiliateOverview, error) {
	ctx, span := otel.Tracer("services/AffiliateService").Start(ctx, "ListCommissions",
		trace.WithAttributes(attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	l, err := repo.GetAffiliateLinkByStylist(ctx, s.DB, actor.ID)
	if err != nil {
		return nil, notFound(err, ErrAffiliateNotFound)
	}
	items, err := repo.ListCommissionsForLink(ctx, s.DB, l.ID)
	if err != nil {
		return nil, err
	}
	out := &AffiliateOverview{Link: l, Commissions: items}
	for _, c := range items {
		if c.Status == domain.CommissionPaid {
			out.PaidOre += c.AmountOre
		} else {
			out.PendingOre += c.AmountOre
		}
	}
	return out, nil
}

// MarkPaid records the payout of a pending commission.
func (s *AffiliateService) MarkPaid(ctx context.Context, actor Actor, commissionID string) (*domain.AffiliateCommission, error) {
	ctx, span := otel.Tracer("services/AffiliateService").Start(ctx, "MarkPaid",
		trace.WithAttributes(attribute.String("commission.id", commissionID), attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	c, err := repo.GetCommission(ctx, s.DB, commissionID)
	if err != nil {
		return nil, notFound(err, ErrCommissionNotFound)
	}
	if c.Status == domain.CommissionPaid {
		return nil, ErrCommissionPaid
	}
	if err := repo.MarkCommissionPaid(ctx, s.DB, commissionID, s.Now.now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCommissionPaid
		}
		return nil, err
	}
	return repo.GetCommission(ctx, s.DB, commissionID)
}
