// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for booking chats
// and their messages.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a chat is not found, functions return gorm.ErrRecordNotFound
//     (exported as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Usage:
//
//	chat, err := repo.GetChatByBooking(ctx, db, bookingID)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // booking has no chat yet
//	}
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/nabostylisten-backend/internal/domain"
)

// CreateChat inserts the chat for a booking. The chat ID is a random UUID.
func CreateChat(ctx context.Context, db *gorm.DB, bookingID string) (*domain.Chat, error) {
	now := time.Now().UTC()
	c := &domain.Chat{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetChatByBooking fetches the chat attached to a booking.
func GetChatByBooking(ctx context.Context, db *gorm.DB, bookingID string) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChatMessage inserts a message and touches the chat's UpdatedAt so
// ETags over the chat list change.
func CreateChatMessage(ctx context.Context, db *gorm.DB, chatID, senderID, content string) (*domain.ChatMessage, error) {
	now := time.Now().UTC()
	m := &domain.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Chat{}).Where("id = ?", chatID).Update("updated_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CountChatMessages uses a raw COUNT so a missing table surfaces as an error.
func CountChatMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM chat_messages WHERE chat_id = ?", chatID).Scan(&total).Error
	return total, err
}

// ListChatMessagesPage returns a page ordered deterministically
// (CreatedAt ASC, ID ASC).
func ListChatMessagesPage(ctx context.Context, db *gorm.DB, chatID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkChatRead stamps ReadAt on every unread message in the chat that was
// sent by someone other than readerID. It returns the number of rows marked.
func MarkChatRead(ctx context.Context, db *gorm.DB, chatID, readerID string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("chat_id = ? AND sender_id <> ? AND read_at IS NULL", chatID, readerID).
		Update("read_at", at.UTC())
	return res.RowsAffected, res.Error
}

// CountUnread returns how many messages in the chat readerID has not read.
func CountUnread(ctx context.Context, db *gorm.DB, chatID, readerID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("chat_id = ? AND sender_id <> ? AND read_at IS NULL", chatID, readerID).
		Count(&n).Error
	return n, err
}
