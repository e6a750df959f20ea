package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"daloamarket-backend/internal/application/auth"
	"daloamarket-backend/internal/application/credits"
	"daloamarket-backend/internal/application/listings"
	"daloamarket-backend/internal/application/reviews"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/pkg/catalog"
	"daloamarket-backend/internal/pkg/format"
	"daloamarket-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound  = errors.New("Utilisateur introuvable")
	ErrNothingToSave = errors.New("Aucune modification fournie")
)

// Service holds profile operations. Listings and Reviews feed the public seller page.
type Service struct {
	DB       *gorm.DB
	Listings *listings.Service
	Reviews  *reviews.Service
}

// Profile is the signed-in member's own view.
type Profile struct {
	*domain.User
	PhoneFormatted string              `json:"phone_formatted"`
	Credits        *domain.UserCredits `json:"credits"`
}

// Me returns the member's profile with the credit balance.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	bal, err := credits.EnsureBalance(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, PhoneFormatted: format.FormatPhoneNumber(u.Phone), Credits: bal}, nil
}

// UpdateInput holds optional profile fields.
type UpdateInput struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	District *string `json:"district"`
}

// Update applies the provided fields with the registration rules.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, in UpdateInput) (*domain.User, error) {
	upd := make(map[string]interface{})
	if in.FullName != nil {
		name := strings.Join(strings.Fields(*in.FullName), " ")
		if !validation.IsValidFullname(name) {
			return nil, auth.ErrFullNameRequired
		}
		upd["full_name"] = name
	}
	if in.Phone != nil {
		if !format.ValidateIvorianPhone(*in.Phone) {
			return nil, auth.ErrInvalidPhone
		}
		upd["phone"] = format.NormalizePhone(*in.Phone)
	}
	if in.District != nil {
		d := strings.TrimSpace(*in.District)
		if !catalog.IsDistrict(d) {
			return nil, auth.ErrInvalidDistrict
		}
		upd["district"] = d
	}
	if len(upd) == 0 {
		return nil, ErrNothingToSave
	}
	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(upd)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.find(ctx, userID)
}

// PublicUser is what any visitor may see about a member.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	District  string    `json:"district"`
	Rating    *float64  `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	MemberFor string    `json:"member_since"`
}

// PublicProfile is the seller page.
type PublicProfile struct {
	User     PublicUser      `json:"user"`
	Listings []listings.Item `json:"listings"`
	Reviews  []reviews.View  `json:"reviews"`
	Rating   reviews.Summary `json:"rating_summary"`
}

// PublicProfile gathers a seller's card, active listings and reviews.
func (s *Service) PublicProfile(ctx context.Context, userID uuid.UUID) (*PublicProfile, error) {
	u, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.Listings.ActiveBySeller(ctx, userID)
	if err != nil {
		return nil, err
	}
	views, err := s.Reviews.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{
		User: PublicUser{
			ID:        u.ID,
			FullName:  u.FullName,
			Phone:     format.FormatPhoneNumber(u.Phone),
			District:  u.District,
			Rating:    u.Rating,
			CreatedAt: u.CreatedAt,
			MemberFor: format.FormatDate(u.CreatedAt),
		},
		Listings: items,
		Reviews:  views,
		Rating:   reviews.Summarize(views),
	}, nil
}

func (s *Service) find(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
