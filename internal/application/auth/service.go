package auth

import (
	"context"
	"errors"
	"strings"

	"daloamarket-backend/internal/application/credits"
	"daloamarket-backend/internal/application/emails"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/infrastructure/database"
	"daloamarket-backend/internal/pkg/catalog"
	"daloamarket-backend/internal/pkg/format"
	"daloamarket-backend/internal/pkg/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

// Service authenticates members by password or by emailed one-time code.
type Service struct {
	DB          *gorm.DB
	Rdb         *redis.Client
	Emails      emails.Sender
	AdminEmails []string

	genCode func() (string, error)
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	District string `json:"district"`
}

// Register creates the account and its empty credit balance.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := validation.NormalizeEmail(in.Email)
	fullName := strings.Join(strings.Fields(in.FullName), " ")
	district := strings.TrimSpace(in.District)
	switch {
	case !validation.IsValidEmail(email):
		return nil, ErrInvalidEmail
	case !validation.IsValidPassword(in.Password):
		return nil, ErrWeakPassword
	case fullName == "" || !validation.IsValidFullname(fullName):
		return nil, ErrFullNameRequired
	case !format.ValidateIvorianPhone(in.Phone):
		return nil, ErrInvalidPhone
	case !catalog.IsDistrict(district):
		return nil, ErrInvalidDistrict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Phone:        format.NormalizePhone(in.Phone),
		District:     district,
		Role:         s.roleFor(email),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		_, err := credits.EnsureBalance(tx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) roleFor(email string) string {
	for _, a := range s.AdminEmails {
		if a == email {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}

// Login checks email and password. Banned accounts are refused after the password matched.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrEmailPasswordRequired
	}
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoAccount) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Banned {
		return nil, ErrBanned
	}
	return u, nil
}

// UserByID reloads a member, used to refresh the session view.
func (s *Service) UserByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoAccount
		}
		return nil, err
	}
	return &u, nil
}
