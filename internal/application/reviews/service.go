package reviews

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidRating    = errors.New("La note doit être comprise entre 1 et 5")
	ErrSelfReview       = errors.New("Vous ne pouvez pas vous évaluer vous-même")
	ErrListingNotFound  = errors.New("Annonce introuvable")
	ErrNotSellerListing = errors.New("Cette annonce n'appartient pas à ce vendeur")
	ErrAlreadyReviewed  = errors.New("Vous avez déjà évalué cette annonce")
	ErrCommentTooLong   = errors.New("Commentaire trop long (1000 caractères maximum)")
)

const (
	maxCommentRunes     = 1000
	goodRatingThreshold = 3
)

type Service struct {
	DB *gorm.DB
}

// CreateInput is a buyer's review of a seller for one listing.
type CreateInput struct {
	ReviewedID uuid.UUID `json:"reviewed_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
}

// Create stores the review and refreshes the seller's rating in the same transaction.
func (s *Service) Create(ctx context.Context, reviewerID uuid.UUID, in CreateInput) (*domain.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if reviewerID == in.ReviewedID {
		return nil, ErrSelfReview
	}
	comment := strings.TrimSpace(in.Comment)
	if len([]rune(comment)) > maxCommentRunes {
		return nil, ErrCommentTooLong
	}

	r := &domain.Review{
		ReviewerID: reviewerID,
		ReviewedID: in.ReviewedID,
		ListingID:  in.ListingID,
		Rating:     in.Rating,
		Comment:    comment,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l domain.Listing
		if err := tx.Where("id = ?", in.ListingID).First(&l).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrListingNotFound
			}
			return err
		}
		if l.UserID != in.ReviewedID {
			return ErrNotSellerListing
		}
		if err := tx.Create(r).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyReviewed
			}
			return err
		}
		return RecalculateRating(tx, in.ReviewedID)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RecalculateRating stores the seller's average rating rounded to one decimal.
func RecalculateRating(tx *gorm.DB, userID uuid.UUID) error {
	var agg struct {
		Avg   float64
		Count int64
	}
	if err := tx.Model(&domain.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("reviewed_id = ?", userID).Scan(&agg).Error; err != nil {
		return err
	}
	var rating *float64
	if agg.Count > 0 {
		v := round1(agg.Avg)
		rating = &v
	}
	return tx.Model(&domain.User{}).Where("id = ?", userID).Update("rating", rating).Error
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// View is a review with its author's display name.
type View struct {
	ID           uuid.UUID `json:"id"`
	ReviewerID   uuid.UUID `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name"`
	ListingID    uuid.UUID `json:"listing_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// ForUser lists the reviews received by userID, newest first.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) ([]View, error) {
	var rows []domain.Review
	db := s.DB.WithContext(ctx)
	if err := db.Where("reviewed_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string)
	if len(rows) > 0 {
		ids := make([]uuid.UUID, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ReviewerID)
		}
		var users []domain.User
		if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.FullName
		}
	}
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		out = append(out, View{
			ID:           r.ID,
			ReviewerID:   r.ReviewerID,
			ReviewerName: names[r.ReviewerID],
			ListingID:    r.ListingID,
			Rating:       r.Rating,
			Comment:      r.Comment,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}

// Summary is the rating breakdown shown on a seller profile.
type Summary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Best    int     `json:"best"`
	Worst   int     `json:"worst"`
}

// Summarize computes the breakdown from already loaded reviews.
func Summarize(views []View) Summary {
	var sum Summary
	if len(views) == 0 {
		return sum
	}
	total := 0
	for _, v := range views {
		total += v.Rating
		if v.Rating >= goodRatingThreshold {
			sum.Best++
		} else {
			sum.Worst++
		}
	}
	sum.Count = len(views)
	sum.Average = round1(float64(total) / float64(len(views)))
	return sum
}
