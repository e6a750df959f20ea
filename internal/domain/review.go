package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ReviewerID uuid.UUID `gorm:"column:reviewer_id;type:uuid;not null;uniqueIndex:idx_review_reviewer_listing" json:"reviewer_id"`
	ReviewedID uuid.UUID `gorm:"column:reviewed_id;type:uuid;not null;index" json:"reviewed_id"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_review_reviewer_listing" json:"listing_id"`
	Rating     int       `gorm:"column:rating;not null" json:"rating"`
	Comment    string    `gorm:"column:comment" json:"comment"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
