package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one chat line between a buyer and a seller about a listing.
type Message struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	SenderID   uuid.UUID `gorm:"column:sender_id;type:uuid;not null;index" json:"sender_id"`
	ReceiverID uuid.UUID `gorm:"column:receiver_id;type:uuid;not null;index" json:"receiver_id"`
	Content    string    `gorm:"column:content;not null" json:"content"`
	Read       bool      `gorm:"column:read;default:false" json:"read"`
	CreatedAt  time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Counterpart returns the other participant from viewer's point of view.
func (m *Message) Counterpart(viewer uuid.UUID) uuid.UUID {
	if m.SenderID == viewer {
		return m.ReceiverID
	}
	return m.SenderID
}
