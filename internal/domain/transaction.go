package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction types.
const (
	TxListingCredit   = "listing_credit"
	TxListingPayment  = "listing_payment"
	TxCreditPurchase  = "credit_purchase"
	TxAdminAdjustment = "admin_adjustment"
)

// Transaction statuses.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxRejected  = "rejected"
)

// Transaction is one ledger line: credits spent, manual payments, pack purchases.
type Transaction struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ListingID *uuid.UUID     `gorm:"column:listing_id;type:uuid" json:"listing_id"`
	Amount    int64          `gorm:"column:amount;not null" json:"amount"`
	Type      string         `gorm:"column:type;type:varchar(30);not null" json:"type"`
	Status    string         `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Meta      datatypes.JSON `gorm:"column:meta" json:"meta,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// UserCredits is the per-user credit balance.
type UserCredits struct {
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Credits     int       `gorm:"column:credits;not null;default:0" json:"credits"`
	TotalEarned int       `gorm:"column:total_earned;not null;default:0" json:"total_earned"`
	TotalSpent  int       `gorm:"column:total_spent;not null;default:0" json:"total_spent"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (UserCredits) TableName() string {
	return "user_credits"
}
