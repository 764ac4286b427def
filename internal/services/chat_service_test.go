package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/repo/repotest"
)

func newChatFixture(t *testing.T) (*ChatService, *[]events.Envelope) {
	t.Helper()
	db := repotest.NewDB(t)
	repotest.Profile(t, db, "cust", domain.RoleCustomer)
	repotest.Profile(t, db, "sty", domain.RoleStylist)
	repotest.Profile(t, db, "other", domain.RoleCustomer)
	repotest.Service(t, db, "svc", "sty", 50000, 60)
	repotest.Booking(t, db, "b1", "cust", "sty", "svc", t0.Add(48*time.Hour), domain.BookingConfirmed, domain.PaymentRequiresCapture, 50000)

	var got []events.Envelope
	bus := events.NewBus()
	bus.Subscribe(func(_ context.Context, e events.Envelope) error {
		got = append(got, e)
		return nil
	}, events.RKChatMessage)
	return &ChatService{DB: db, Events: bus, Now: func() time.Time { return t0 }}, &got
}

func TestChatPost_CreatesChatLazilyAndPublishes(t *testing.T) {
	cs, got := newChatFixture(t)
	ctx := context.Background()

	m, err := cs.Post(ctx, customer, "b1", "  Hei!\r\n\n\n\nKan vi starte 10 min senere?\x00 ")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if m.Content != "Hei!\n\nKan vi starte 10 min senere?" || m.SenderID != customer.ID {
		t.Fatalf("message = %q from %s", m.Content, m.SenderID)
	}
	if _, err := cs.Post(ctx, stylist, "b1", "Det går fint"); err != nil {
		t.Fatalf("stylist Post: %v", err)
	}

	var chats int64
	cs.DB.Model(&domain.Chat{}).Where("booking_id = ?", "b1").Count(&chats)
	if chats != 1 {
		t.Fatalf("chats = %d; want 1", chats)
	}
	if len(*got) != 2 {
		t.Fatalf("chat.message published %d times", len(*got))
	}
	payload, err := events.Decode[events.ChatMessagePosted]((*got)[0])
	if err != nil || payload.BookingID != "b1" || payload.Preview != "Hei! Kan vi starte 10 min senere?" {
		t.Fatalf("payload = %+v, %v", payload, err)
	}
}

func TestChatPost_Rules(t *testing.T) {
	cs, got := newChatFixture(t)
	ctx := context.Background()

	if _, err := cs.Post(ctx, outsider, "b1", "hei"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("outsider err = %v", err)
	}
	if _, err := cs.Post(ctx, admin, "b1", "hei"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("admins read but do not post: %v", err)
	}
	if _, err := cs.Post(ctx, customer, "b1", " \n\t "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank err = %v", err)
	}
	if _, err := cs.Post(ctx, customer, "b1", strings.Repeat("å", MaxMessageRunes+1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("too long err = %v", err)
	}
	if _, err := cs.Post(ctx, customer, "b1", strings.Repeat("å", MaxMessageRunes)); err != nil {
		t.Fatalf("max length rejected: %v", err)
	}
	if _, err := cs.Post(ctx, customer, "missing", "hei"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("missing booking err = %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("only the accepted message should publish, got %d", len(*got))
	}
}

func TestChatListPage_AndMarkRead(t *testing.T) {
	cs, _ := newChatFixture(t)
	ctx := context.Background()

	if items, total, err := cs.ListPage(ctx, customer, "b1", 1, 10); err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty chat = %d/%d, %v", len(items), total, err)
	}
	for i := 0; i < 3; i++ {
		if _, err := cs.Post(ctx, stylist, "b1", "melding"); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	if _, err := cs.Post(ctx, customer, "b1", "svar"); err != nil {
		t.Fatalf("Post: %v", err)
	}

	items, total, err := cs.ListPage(ctx, customer, "b1", 1, 3)
	if err != nil || total != 4 || len(items) != 3 {
		t.Fatalf("ListPage = %d/%d, %v", len(items), total, err)
	}
	if _, total, err := cs.ListPage(ctx, admin, "b1", 1, 10); err != nil || total != 4 {
		t.Fatalf("admin ListPage = %d, %v", total, err)
	}
	if _, _, err := cs.ListPage(ctx, outsider, "b1", 1, 10); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("outsider ListPage err = %v", err)
	}

	n, err := cs.MarkRead(ctx, customer, "b1")
	if err != nil || n != 3 {
		t.Fatalf("MarkRead = %d, %v; want the stylist's 3 messages", n, err)
	}
	if n, _ := cs.MarkRead(ctx, customer, "b1"); n != 0 {
		t.Fatalf("second MarkRead = %d", n)
	}
	if n, _ := cs.MarkRead(ctx, stylist, "b1"); n != 1 {
		t.Fatalf("stylist MarkRead = %d", n)
	}

	count, max, err := cs.Stats(ctx, customer, "b1")
	if err != nil || count != 4 || max == nil {
		t.Fatalf("Stats = %d, %v, %v", count, max, err)
	}
}
