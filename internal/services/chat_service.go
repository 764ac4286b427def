// Package services – ChatService
//
// This file implements the ChatService, which owns the conversation attached
// to every booking. Only the booking's customer and stylist may read or post;
// admins may read for support. Content is sanitized and length-checked
// before it is stored, and each message emits a chat.message event so the
// other participant is notified.
//
// Service-level errors (e.g., ErrBookingNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
)

const (
	// MaxMessageRunes caps a chat message.
	MaxMessageRunes = 2000

	previewRunes = 140
)

// ChatService provides booking chat operations.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Events receives chat.message after a message is stored.
	Events events.Publisher
	// Now stamps read receipts.
	Now Clock
}

// Post stores a message from a booking participant.
func (s *ChatService) Post(ctx context.Context, actor Actor, bookingID, content string) (*domain.ChatMessage, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Post",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("user.id", actor.ID),
		),
	)
	defer span.End()

	content = sanitizeText(content)
	if content == "" {
		return nil, invalid("content", "must not be empty")
	}
	if runeLen(content) > MaxMessageRunes {
		return nil, invalid("content", "must be at most 2000 characters")
	}

	b, err := s.booking(ctx, actor, bookingID, false)
	if err != nil {
		return nil, err
	}
	chat, err := s.chatFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	m, err := repo.CreateChatMessage(ctx, s.DB, chat.ID, actor.ID, content)
	if err != nil {
		return nil, err
	}

	emit(ctx, s.Events, events.RKChatMessage, events.ChatMessagePosted{
		BookingID: b.ID,
		ChatID:    chat.ID,
		MessageID: m.ID,
		SenderID:  actor.ID,
		Preview:   clip(normalizeLine(content), previewRunes),
	})
	return m, nil
}

// ListPage returns a page of a booking's messages, oldest first.
// It applies defaults for invalid page/pageSize and returns total count.
func (s *ChatService) ListPage(ctx context.Context, actor Actor, bookingID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("booking.id", bookingID),
			attribute.String("user.id", actor.ID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if _, err := s.booking(ctx, actor, bookingID, true); err != nil {
		return nil, 0, err
	}
	chat, err := repo.GetChatByBooking(ctx, s.DB, bookingID)
	if errors.Is(err, repo.ErrNotFound) {
		return []domain.ChatMessage{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	_, size, offset := pageBounds(page, pageSize)
	total, err := repo.CountChatMessages(ctx, s.DB, chat.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}
	items, err := repo.ListChatMessagesPage(ctx, s.DB, chat.ID, offset, size)
	return items, total, err
}

// MarkRead stamps every message the caller received in the chat as read
// and returns how many were marked.
func (s *ChatService) MarkRead(ctx context.Context, actor Actor, bookingID string) (int64, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "MarkRead",
		trace.WithAttributes(attribute.String("booking.id", bookingID), attribute.String("user.id", actor.ID)),
	)
	defer span.End()

	if _, err := s.booking(ctx, actor, bookingID, false); err != nil {
		return 0, err
	}
	chat, err := repo.GetChatByBooking(ctx, s.DB, bookingID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return repo.MarkChatRead(ctx, s.DB, chat.ID, actor.ID, s.Now.now())
}

// Stats returns the message count and latest update of a booking's chat
// for conditional GET. A booking without a chat reports zero.
func (s *ChatService) Stats(ctx context.Context, actor Actor, bookingID string) (int64, *time.Time, error) {
	if _, err := s.booking(ctx, actor, bookingID, true); err != nil {
		return 0, nil, err
	}
	chat, err := repo.GetChatByBooking(ctx, s.DB, bookingID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return repo.ChatMessagesStats(ctx, s.DB, chat.ID)
}

// booking loads a booking the caller takes part in. Outsiders get
// ErrBookingNotFound so booking IDs do not leak.
func (s *ChatService) booking(ctx context.Context, actor Actor, id string, adminRead bool) (*domain.Booking, error) {
	b, err := repo.GetBooking(ctx, s.DB, id)
	if err != nil {
		return nil, notFound(err, ErrBookingNotFound)
	}
	if participant(b, actor) || (adminRead && actor.IsAdmin()) {
		return b, nil
	}
	return nil, ErrBookingNotFound
}

// chatFor returns the booking's chat, creating it for bookings that
// predate chats.
func (s *ChatService) chatFor(ctx context.Context, bookingID string) (*domain.Chat, error) {
	c, err := repo.GetChatByBooking(ctx, s.DB, bookingID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	c, err = repo.CreateChat(ctx, s.DB, bookingID)
	if err != nil && repo.IsUniqueViolation(err) {
		return repo.GetChatByBooking(ctx, s.DB, bookingID)
	}
	return c, err
}
