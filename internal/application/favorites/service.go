package favorites

import (
	"context"
	"errors"
	"time"

	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/pkg/format"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrListingNotFound = errors.New("Annonce introuvable")

type Service struct {
	DB *gorm.DB
}

// Entry is a saved listing as shown in the favorites page.
type Entry struct {
	domain.Listing
	PriceFormatted string    `json:"price_formatted"`
	FavoritedAt    time.Time `json:"favorited_at"`
}

// List returns the user's favorites, most recently saved first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	db := s.DB.WithContext(ctx)
	var favs []domain.Favorite
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&favs).Error; err != nil {
		return nil, err
	}
	if len(favs) == 0 {
		return []Entry{}, nil
	}
	ids := make([]uuid.UUID, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.ListingID)
	}
	var rows []domain.Listing
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Listing, len(rows))
	for _, l := range rows {
		byID[l.ID] = l
	}
	out := make([]Entry, 0, len(favs))
	for _, f := range favs {
		l, ok := byID[f.ListingID]
		if !ok {
			continue
		}
		out = append(out, Entry{Listing: l, PriceFormatted: format.FormatPrice(l.Price), FavoritedAt: f.CreatedAt})
	}
	return out, nil
}

// Add saves a listing. Adding twice is a no-op.
func (s *Service) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	db := s.DB.WithContext(ctx)
	var n int64
	if err := db.Model(&domain.Listing{}).Where("id = ?", listingID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrListingNotFound
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Favorite{UserID: userID, ListingID: listingID}).Error
}

// Remove deletes a saved listing; missing rows are not an error.
func (s *Service) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	return s.DB.WithContext(ctx).Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&domain.Favorite{}).Error
}

// IsFavorite reports whether userID saved listingID.
func (s *Service) IsFavorite(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Favorite{}).
		Where("user_id = ? AND listing_id = ?", userID, listingID).Count(&n).Error
	return n > 0, err
}
