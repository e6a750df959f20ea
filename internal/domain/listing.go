package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ListingPending  = "pending"
	ListingActive   = "active"
	ListingSold     = "sold"
	ListingDisabled = "disabled"
)

// PhotoURLs stores the photo list as a JSON array column and marshals as a plain array.
type PhotoURLs []string

// Scan implements sql.Scanner for reading from DB (json column).
func (p *PhotoURLs) Scan(value interface{}) error {
	if value == nil {
		*p = PhotoURLs{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for PhotoURLs")
	}
	if len(raw) == 0 {
		*p = PhotoURLs{}
		return nil
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return err
	}
	*p = urls
	return nil
}

// Value implements driver.Valuer for writing to DB.
func (p PhotoURLs) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// First returns the cover photo or "" when the listing has none.
func (p PhotoURLs) First() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Listing is a classified ad.
type Listing struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Title        string     `gorm:"column:title;not null" json:"title"`
	Description  string     `gorm:"column:description;not null" json:"description"`
	Price        int64      `gorm:"column:price;not null" json:"price"`
	Category     string     `gorm:"column:category;not null;index" json:"category"`
	Condition    string     `gorm:"column:condition;not null" json:"condition"`
	District     string     `gorm:"column:district;not null" json:"district"`
	Photos       PhotoURLs  `gorm:"column:photos;type:json" json:"photos"`
	Status       string     `gorm:"column:status;type:varchar(20);default:'pending';index" json:"status"`
	BoostedUntil *time.Time `gorm:"column:boosted_until" json:"boosted_until"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// BoostActive reports whether the listing boost is still running at now.
func (l *Listing) BoostActive(now time.Time) bool {
	return l.BoostedUntil != nil && l.BoostedUntil.After(now)
}

// Editable is false once a listing left the pending/active lifecycle.
func (l *Listing) Editable() bool {
	return l.Status == ListingPending || l.Status == ListingActive
}
