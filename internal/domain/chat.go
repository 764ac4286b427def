package domain

import (
	"time"

	"gorm.io/gorm"
)

// Chat is the conversation attached to a booking. Its participants are the
// booking's customer and stylist.
type Chat struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	BookingID string         `json:"booking_id" gorm:"type:char(36);not null;uniqueIndex:ux_chats_booking"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	Booking Booking `json:"-" gorm:"foreignKey:BookingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// ChatMessage is a single message within a booking chat.
//
// Fields:
//   - SenderID: the participant that wrote the message.
//   - ReadAt: set when the other participant marks the chat read.
type ChatMessage struct {
	ID        string     `json:"id"         gorm:"type:char(36);primaryKey"`
	ChatID    string     `json:"chat_id"    gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	SenderID  string     `json:"sender_id"  gorm:"type:char(36);not null"`
	Content   string     `json:"content"    gorm:"type:text;not null"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"index:idx_chat_msgs,priority:2"`
	UpdatedAt time.Time  `json:"updated_at"`

	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }
