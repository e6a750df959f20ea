package credits

import (
	"context"
	"encoding/json"
	"errors"

	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/pkg/catalog"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientCredits = errors.New("Crédits insuffisants")
	ErrInvalidPack         = errors.New("Pack de crédits invalide")
	ErrInvalidAmount       = errors.New("Le nombre de crédits doit être positif ou nul")
)

// Service owns user_credits balances and the credit side of the ledger.
type Service struct {
	DB *gorm.DB
}

// Balance returns the user's balance, creating an empty row on first access.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*domain.UserCredits, error) {
	return EnsureBalance(s.DB.WithContext(ctx), userID)
}

// EnsureBalance works on any handle, including an open transaction.
func EnsureBalance(tx *gorm.DB, userID uuid.UUID) (*domain.UserCredits, error) {
	row := domain.UserCredits{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Spend takes one credit for publishing listingID. Must run inside tx.
// The conditional update keeps the balance from going negative under concurrency.
func Spend(tx *gorm.DB, userID, listingID uuid.UUID) error {
	res := tx.Model(&domain.UserCredits{}).
		Where("user_id = ? AND credits >= ?", userID, 1).
		Updates(map[string]interface{}{
			"credits":     gorm.Expr("credits - ?", 1),
			"total_spent": gorm.Expr("total_spent + ?", 1),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	lid := listingID
	return tx.Create(&domain.Transaction{
		UserID:    userID,
		ListingID: &lid,
		Amount:    1,
		Type:      domain.TxListingCredit,
		Status:    domain.TxCompleted,
	}).Error
}

// Transactions lists the user's ledger, newest first.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// RequestPack records a pending credit_purchase awaiting manual validation.
func (s *Service) RequestPack(ctx context.Context, userID uuid.UUID, packCredits int, phone string) (*domain.Transaction, catalog.CreditPack, error) {
	pack, ok := catalog.PackFor(packCredits)
	if !ok {
		return nil, catalog.CreditPack{}, ErrInvalidPack
	}
	t := &domain.Transaction{
		UserID: userID,
		Amount: pack.Price,
		Type:   domain.TxCreditPurchase,
		Status: domain.TxPending,
		Meta:   packMeta(pack, phone),
	}
	if err := s.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, pack, err
	}
	return t, pack, nil
}

// AddPack credits a pack. A matching pending purchase is completed rather than duplicated.
func (s *Service) AddPack(ctx context.Context, userID uuid.UUID, packCredits int) (*domain.UserCredits, error) {
	pack, ok := catalog.PackFor(packCredits)
	if !ok {
		return nil, ErrInvalidPack
	}
	var out *domain.UserCredits
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := EnsureBalance(tx, userID); err != nil {
			return err
		}
		if err := credit(tx, userID, pack.Credits); err != nil {
			return err
		}
		var pending domain.Transaction
		err := tx.Where("user_id = ? AND type = ? AND status = ? AND amount = ?",
			userID, domain.TxCreditPurchase, domain.TxPending, pack.Price).
			Order("created_at ASC").First(&pending).Error
		if err == nil {
			// a concurrent validation may have completed it since the read
			res := tx.Model(&domain.Transaction{}).
				Where("id = ? AND status = ?", pending.ID, domain.TxPending).
				Update("status", domain.TxCompleted)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				err = gorm.ErrRecordNotFound
			}
		}
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&domain.Transaction{
				UserID: userID,
				Amount: pack.Price,
				Type:   domain.TxCreditPurchase,
				Status: domain.TxCompleted,
				Meta:   packMeta(pack, ""),
			}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}
		out, err = EnsureBalance(tx, userID)
		return err
	})
	return out, err
}

// CompletePurchase credits the pack behind a pending credit_purchase transaction. Must run inside tx.
func CompletePurchase(tx *gorm.DB, t *domain.Transaction) error {
	credits := packCreditsFromMeta(t)
	if credits == 0 {
		return ErrInvalidPack
	}
	if _, err := EnsureBalance(tx, t.UserID); err != nil {
		return err
	}
	return credit(tx, t.UserID, credits)
}

// SetCredits overwrites the balance and records the delta as an admin adjustment.
func (s *Service) SetCredits(ctx context.Context, userID uuid.UUID, credits int) (*domain.UserCredits, error) {
	if credits < 0 {
		return nil, ErrInvalidAmount
	}
	var out *domain.UserCredits
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := EnsureBalance(tx, userID)
		if err != nil {
			return err
		}
		delta := credits - cur.Credits
		if err := tx.Model(&domain.UserCredits{}).Where("user_id = ?", userID).
			Update("credits", credits).Error; err != nil {
			return err
		}
		if delta != 0 {
			if err := tx.Create(&domain.Transaction{
				UserID: userID,
				Amount: int64(delta),
				Type:   domain.TxAdminAdjustment,
				Status: domain.TxCompleted,
			}).Error; err != nil {
				return err
			}
		}
		cur.Credits = credits
		out = cur
		return nil
	})
	return out, err
}

func credit(tx *gorm.DB, userID uuid.UUID, n int) error {
	return tx.Model(&domain.UserCredits{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"credits":      gorm.Expr("credits + ?", n),
			"total_earned": gorm.Expr("total_earned + ?", n),
		}).Error
}

type purchaseMeta struct {
	PackCredits int    `json:"pack_credits"`
	Phone       string `json:"phone,omitempty"`
}

func packMeta(pack catalog.CreditPack, phone string) datatypes.JSON {
	b, _ := json.Marshal(purchaseMeta{PackCredits: pack.Credits, Phone: phone})
	return datatypes.JSON(b)
}

func packCreditsFromMeta(t *domain.Transaction) int {
	var m purchaseMeta
	if len(t.Meta) > 0 && json.Unmarshal(t.Meta, &m) == nil && m.PackCredits > 0 {
		return m.PackCredits
	}
	for _, p := range catalog.CreditPacks {
		if p.Price == t.Amount {
			return p.Credits
		}
	}
	return 0
}
