package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a marketplace member. Sellers and buyers share the same row.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	FullName     string    `gorm:"column:full_name;not null" json:"full_name"`
	Phone        string    `gorm:"column:phone" json:"phone"`
	District     string    `gorm:"column:district" json:"district"`
	Rating       *float64  `gorm:"column:rating" json:"rating"`
	Banned       bool      `gorm:"column:banned;default:false" json:"banned"`
	Role         string    `gorm:"column:role;type:varchar(20);default:'user'" json:"role"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user can moderate the marketplace.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
