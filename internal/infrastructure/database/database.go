package database

import (
	"errors"
	"strings"

	"daloamarket-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Supabase/Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind PgBouncer-style poolers.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// IsUniqueViolation reports a unique index conflict. Postgres errors arrive
// translated to gorm.ErrDuplicatedKey; the sqlite driver used in tests reports
// the raw constraint message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Models lists every table owned by the API.
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Listing{},
		&domain.Message{},
		&domain.UserCredits{},
		&domain.Transaction{},
		&domain.Review{},
		&domain.Favorite{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
