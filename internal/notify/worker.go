// Package notify turns domain events into transactional email. A Worker is
// an events.Handler: it resolves recipients from the database, renders the
// matching template and hands the message to a Mailer.
//
// Delivery is idempotent per (event id, recipient): each message commits its
// own consumed marker together with its send. A failed send is retried on
// redelivery, and recipients already mailed for that event are skipped.
package notify

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/email"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

// ConsumerName identifies this worker in consumed_events.
const ConsumerName = "email"

// previewRunes caps the chat excerpt in notification emails.
const previewRunes = 140

// Worker renders and sends notification emails.
type Worker struct {
	DB       *gorm.DB
	Renderer *email.Renderer
	Mailer   email.Mailer
}

// Handle implements events.Handler.
func (w *Worker) Handle(ctx context.Context, e events.Envelope) error {
	lg := log.With().Str("component", "notify").Str("event", e.Event).Str("event_id", e.ID).Logger()

	msgs, err := w.build(ctx, e)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			lg.Warn().Err(err).Msg("event refers to missing rows; skipping")
			return nil
		}
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	sent := 0
	for i, m := range msgs {
		err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			fresh, err := repo.MarkEventConsumed(ctx, tx, ConsumerName, deliveryID(e.ID, m.To), e.Event)
			if err != nil || !fresh {
				return err
			}
			if err := w.Mailer.Send(ctx, m); err != nil {
				return fmt.Errorf("send %s (%d of %d): %w", e.Event, i+1, len(msgs), err)
			}
			sent++
			return nil
		})
		if err != nil {
			return err
		}
	}
	if sent == 0 {
		lg.Debug().Msg("already delivered")
		return nil
	}
	lg.Info().Int("messages", sent).Msg("notification sent")
	return nil
}

// deliveryID names one recipient's copy of an event. It fits the 64-char
// consumed_events key whatever the address length.
func deliveryID(eventID, to string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(eventID+"/"+to)).String()
}

func (w *Worker) build(ctx context.Context, e events.Envelope) ([]email.Message, error) {
	switch e.Event {
	case events.RKProfileCreated:
		ev, err := events.Decode[events.ProfileCreated](e)
		if err != nil {
			return nil, err
		}
		p, err := repo.GetProfile(ctx, w.DB, ev.ProfileID)
		if err != nil {
			return nil, err
		}
		return w.render(p.Email, email.TplWelcome, email.WelcomeData{Name: p.FullName, Role: string(p.Role)})

	case events.RKBookingRequested, events.RKBookingConfirmed, events.RKBookingCancelled, events.RKBookingCompleted:
		ev, err := events.Decode[events.BookingChanged](e)
		if err != nil {
			return nil, err
		}
		return w.bookingMessages(ctx, e.Event, ev)

	case events.RKPaymentRefunded:
		ev, err := events.Decode[events.PaymentRefunded](e)
		if err != nil {
			return nil, err
		}
		p, err := repo.GetPayment(ctx, w.DB, ev.PaymentID)
		if err != nil {
			return nil, err
		}
		b, err := repo.GetBooking(ctx, w.DB, p.BookingID)
		if err != nil {
			return nil, err
		}
		cust, err := repo.GetProfile(ctx, w.DB, b.CustomerID)
		if err != nil {
			return nil, err
		}
		return w.render(cust.Email, email.TplPaymentRefunded, email.RefundData{
			RecipientName: cust.FullName,
			StartTime:     b.StartTime,
			AmountOre:     ev.AmountOre,
			RefundedOre:   p.RefundedOre,
			CapturedOre:   p.CapturedOre,
			Reason:        ev.Reason,
		})

	case events.RKChatMessage:
		ev, err := events.Decode[events.ChatMessagePosted](e)
		if err != nil {
			return nil, err
		}
		b, err := repo.GetBooking(ctx, w.DB, ev.BookingID)
		if err != nil {
			return nil, err
		}
		toID := b.CustomerID
		if ev.SenderID == b.CustomerID {
			toID = b.StylistID
		}
		people, err := repo.GetProfilesByIDs(ctx, w.DB, []string{toID, ev.SenderID})
		if err != nil {
			return nil, err
		}
		to, ok := people[toID]
		if !ok {
			return nil, repo.ErrNotFound
		}
		return w.render(to.Email, email.TplNewChatMessage, email.ChatData{
			RecipientName: to.FullName,
			SenderName:    people[ev.SenderID].FullName,
			Preview:       clipRunes(ev.Preview, previewRunes),
			BookingURL:    w.bookingURL(b.ID),
		})

	case events.RKAffiliateCommission:
		ev, err := events.Decode[events.CommissionEarned](e)
		if err != nil {
			return nil, err
		}
		link, err := repo.GetAffiliateLink(ctx, w.DB, ev.LinkID)
		if err != nil {
			return nil, err
		}
		owner, err := repo.GetProfile(ctx, w.DB, link.StylistID)
		if err != nil {
			return nil, err
		}
		return w.render(owner.Email, email.TplAffiliateCommission, email.CommissionData{
			RecipientName: owner.FullName,
			Code:          link.Code,
			AmountOre:     ev.AmountOre,
		})
	}
	return nil, nil
}

func (w *Worker) bookingMessages(ctx context.Context, event string, ev events.BookingChanged) ([]email.Message, error) {
	b, err := repo.GetBooking(ctx, w.DB, ev.BookingID)
	if err != nil {
		return nil, err
	}
	people, err := repo.GetProfilesByIDs(ctx, w.DB, []string{b.CustomerID, b.StylistID})
	if err != nil {
		return nil, err
	}
	cust, okC := people[b.CustomerID]
	sty, okS := people[b.StylistID]
	if !okC || !okS {
		return nil, repo.ErrNotFound
	}

	data := email.BookingData{
		CustomerName: cust.FullName,
		StylistName:  sty.FullName,
		StartTime:    b.StartTime,
		Location:     w.locationText(ctx, b),
		TotalOre:     b.FinalOre(),
		Note:         b.Note,
		Reason:       ev.Reason,
		BookingURL:   w.bookingURL(b.ID),
	}
	for _, s := range b.Services {
		data.Services = append(data.Services, s.Title)
	}

	forCustomer := func(tpl string, d email.BookingData) ([]email.Message, error) {
		d.RecipientName = cust.FullName
		return w.render(cust.Email, tpl, d)
	}
	forStylist := func(tpl string, d email.BookingData) ([]email.Message, error) {
		d.RecipientName = sty.FullName
		return w.render(sty.Email, tpl, d)
	}

	switch event {
	case events.RKBookingRequested:
		return forStylist(email.TplBookingRequested, data)
	case events.RKBookingConfirmed:
		return forCustomer(email.TplBookingConfirmed, data)
	case events.RKBookingCompleted:
		return forCustomer(email.TplBookingCompleted, data)
	case events.RKBookingCancelled:
		data.RefundOre = ev.RefundOre
		if p, err := repo.GetPaymentByBooking(ctx, w.DB, b.ID); err == nil {
			data.FeeOre = p.CapturedOre - p.RefundedOre
		}
		var out []email.Message
		if ev.ActorID != b.CustomerID {
			m, err := forCustomer(email.TplBookingCancelled, data)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
		if ev.ActorID != b.StylistID {
			d := data
			d.RefundOre, d.FeeOre = 0, 0
			m, err := forStylist(email.TplBookingCancelled, d)
			if err != nil {
				return nil, err
			}
			out = append(out, m...)
		}
		return out, nil
	}
	return nil, nil
}

func (w *Worker) locationText(ctx context.Context, b *domain.Booking) string {
	if b.Location == domain.LocationCustomer {
		if b.AddressID != nil {
			if a, err := repo.GetAddress(ctx, w.DB, *b.AddressID, b.CustomerID); err == nil {
				return fmt.Sprintf("Hjemme hos kunden, %s, %s %s", a.Street, a.PostalCode, a.City)
			}
		}
		return "Hjemme hos kunden"
	}
	if m, err := repo.PrimaryAddresses(ctx, w.DB, []string{b.StylistID}); err == nil {
		if a, ok := m[b.StylistID]; ok {
			return fmt.Sprintf("Hos stylisten, %s, %s %s", a.Street, a.PostalCode, a.City)
		}
	}
	return "Hos stylisten"
}

func (w *Worker) bookingURL(id string) string {
	return w.Renderer.Brand().BaseURL + "/bookinger/" + id
}

func (w *Worker) render(to, tpl string, data any) ([]email.Message, error) {
	m, err := w.Renderer.Render(tpl, data)
	if err != nil {
		return nil, err
	}
	m.To = to
	return []email.Message{m}, nil
}

func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
