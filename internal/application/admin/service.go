package admin

import (
	"context"
	"errors"
	"strings"
	"time"

	"daloamarket-backend/internal/application/credits"
	"daloamarket-backend/internal/application/listings"
	policies "daloamarket-backend/internal/application/policies/user"
	"daloamarket-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("Utilisateur introuvable")
	ErrListingNotFound     = errors.New("Annonce introuvable")
	ErrListingNotPending   = errors.New("Seule une annonce en attente peut être approuvée")
	ErrTransactionNotFound = errors.New("Transaction introuvable")
	ErrAlreadyProcessed    = errors.New("Transaction déjà traitée")
)

// Service backs the moderation dashboard.
type Service struct {
	DB      *gorm.DB
	Rdb     *redis.Client
	Credits *credits.Service
}

// UserRow is a member with their balance.
type UserRow struct {
	domain.User
	Credits int `json:"credits"`
}

// Users lists members, newest first, optionally filtered by name or email.
func (s *Service) Users(ctx context.Context, q string) ([]UserRow, error) {
	db := s.DB.WithContext(ctx)
	query := db.Model(&domain.User{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	var users []domain.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	balances, err := s.balanceMap(db, users)
	if err != nil {
		return nil, err
	}
	out := make([]UserRow, 0, len(users))
	for _, u := range users {
		out = append(out, UserRow{User: u, Credits: balances[u.ID].Credits})
	}
	return out, nil
}

func (s *Service) balanceMap(db *gorm.DB, users []domain.User) (map[uuid.UUID]domain.UserCredits, error) {
	out := make(map[uuid.UUID]domain.UserCredits)
	if len(users) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	var rows []domain.UserCredits
	if err := db.Where("user_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.UserID] = r
	}
	return out, nil
}

// ToggleBan flips the banned flag. Banning signs the member out everywhere.
func (s *Service) ToggleBan(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	if err := policies.ValidateBan(actorID.String(), targetID.String()); err != nil {
		return false, err
	}
	u, err := s.user(ctx, targetID)
	if err != nil {
		return false, err
	}
	banned := !u.Banned
	if err := s.DB.WithContext(ctx).Model(u).Update("banned", banned).Error; err != nil {
		return false, err
	}
	if banned {
		policies.DestroyUserSessions(ctx, s.Rdb, targetID.String())
	}
	return banned, nil
}

// SetRole changes a member's role and drops their sessions so the new role applies at next login.
func (s *Service) SetRole(ctx context.Context, actorID, targetID uuid.UUID, role string) (*domain.User, error) {
	if err := policies.ValidateRoleAssignment(actorID.String(), targetID.String(), role); err != nil {
		return nil, err
	}
	u, err := s.user(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(u).Update("role", role).Error; err != nil {
		return nil, err
	}
	u.Role = role
	policies.DestroyUserSessions(ctx, s.Rdb, targetID.String())
	return u, nil
}

func (s *Service) SetCredits(ctx context.Context, targetID uuid.UUID, n int) (*domain.UserCredits, error) {
	if _, err := s.user(ctx, targetID); err != nil {
		return nil, err
	}
	return s.Credits.SetCredits(ctx, targetID, n)
}

func (s *Service) AddPack(ctx context.Context, targetID uuid.UUID, packCredits int) (*domain.UserCredits, error) {
	if _, err := s.user(ctx, targetID); err != nil {
		return nil, err
	}
	return s.Credits.AddPack(ctx, targetID, packCredits)
}

// Listings lists every listing, optionally by status, newest first.
func (s *Service) Listings(ctx context.Context, status string) ([]domain.Listing, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Listing{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Listing
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

// Approve publishes a pending listing.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.listing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.ListingPending {
		return nil, ErrListingNotPending
	}
	return l, s.setStatus(ctx, l, domain.ListingActive)
}

func (s *Service) Disable(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.listing(ctx, id)
	if err != nil {
		return nil, err
	}
	return l, s.setStatus(ctx, l, domain.ListingDisabled)
}

func (s *Service) MarkSold(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.listing(ctx, id)
	if err != nil {
		return nil, err
	}
	return l, s.setStatus(ctx, l, domain.ListingSold)
}

func (s *Service) DeleteListing(ctx context.Context, id uuid.UUID) error {
	err := listings.Remove(s.DB.WithContext(ctx), id)
	if errors.Is(err, listings.ErrNotFound) {
		return ErrListingNotFound
	}
	return err
}

func (s *Service) setStatus(ctx context.Context, l *domain.Listing, status string) error {
	if err := s.DB.WithContext(ctx).Model(l).Update("status", status).Error; err != nil {
		return err
	}
	l.Status = status
	return nil
}

// BalanceRow is one line of the credits overview.
type BalanceRow struct {
	UserID      uuid.UUID `json:"user_id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Credits     int       `json:"credits"`
	TotalEarned int       `json:"total_earned"`
	TotalSpent  int       `json:"total_spent"`
}

// Balances lists every credit balance with its owner, largest first.
func (s *Service) Balances(ctx context.Context) ([]BalanceRow, error) {
	var out []BalanceRow
	err := s.DB.WithContext(ctx).Table("user_credits").
		Select("user_credits.user_id, users.full_name, users.email, user_credits.credits, user_credits.total_earned, user_credits.total_spent").
		Joins("JOIN users ON users.id = user_credits.user_id").
		Order("user_credits.credits DESC").
		Scan(&out).Error
	return out, err
}

// TransactionRow is a ledger line with display names.
type TransactionRow struct {
	domain.Transaction
	UserName     string `json:"user_name"`
	ListingTitle string `json:"listing_title"`
}

// Transactions lists the ledger, newest first, optionally filtered.
func (s *Service) Transactions(ctx context.Context, status, txType string) ([]TransactionRow, error) {
	db := s.DB.WithContext(ctx)
	q := db.Model(&domain.Transaction{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	var txs []domain.Transaction
	if err := q.Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, err
	}

	userIDs := make([]uuid.UUID, 0, len(txs))
	listingIDs := make([]uuid.UUID, 0)
	for _, t := range txs {
		userIDs = append(userIDs, t.UserID)
		if t.ListingID != nil {
			listingIDs = append(listingIDs, *t.ListingID)
		}
	}
	names := make(map[uuid.UUID]string)
	if len(userIDs) > 0 {
		var users []domain.User
		if err := db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.FullName
		}
	}
	titles := make(map[uuid.UUID]string)
	if len(listingIDs) > 0 {
		var ls []domain.Listing
		if err := db.Where("id IN ?", listingIDs).Find(&ls).Error; err != nil {
			return nil, err
		}
		for _, l := range ls {
			titles[l.ID] = l.Title
		}
	}

	out := make([]TransactionRow, 0, len(txs))
	for _, t := range txs {
		row := TransactionRow{Transaction: t, UserName: names[t.UserID]}
		if t.ListingID != nil {
			row.ListingTitle = titles[*t.ListingID]
		}
		out = append(out, row)
	}
	return out, nil
}

// ValidateTransaction completes a pending payment and applies its effect:
// a listing payment publishes the listing, a pack purchase credits the pack.
func (s *Service) ValidateTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var out domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := claimPending(tx, id, domain.TxCompleted)
		if err != nil {
			return err
		}
		switch t.Type {
		case domain.TxListingPayment:
			if t.ListingID != nil {
				res := tx.Model(&domain.Listing{}).
					Where("id = ? AND status = ?", *t.ListingID, domain.ListingPending).
					Update("status", domain.ListingActive)
				if res.Error != nil {
					return res.Error
				}
			}
		case domain.TxCreditPurchase:
			if err := credits.CompletePurchase(tx, t); err != nil {
				return err
			}
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RejectTransaction closes a pending payment without effect.
func (s *Service) RejectTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var out domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := claimPending(tx, id, domain.TxRejected)
		if err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// claimPending moves a pending transaction to status. The conditional update
// holds the row until commit, so a concurrent claim sees it already processed.
func claimPending(tx *gorm.DB, id uuid.UUID, status string) (*domain.Transaction, error) {
	res := tx.Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, domain.TxPending).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	var t domain.Transaction
	if err := tx.Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyProcessed
	}
	return &t, nil
}

func (s *Service) user(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) listing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}
