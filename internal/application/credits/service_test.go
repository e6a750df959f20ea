package credits

import (
	"context"
	"testing"

	"daloamarket-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCredits(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.UserCredits{}, &domain.Transaction{}))
	return &Service{DB: db}
}

func TestBalance_CreatedLazily(t *testing.T) {
	s := setupCredits(t)
	userID := uuid.New()
	b, err := s.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Credits)

	b, err = s.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, b.UserID)
	var n int64
	s.DB.Model(&domain.UserCredits{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestSpend(t *testing.T) {
	s := setupCredits(t)
	userID, listingID := uuid.New(), uuid.New()
	_, err := s.SetCredits(context.Background(), userID, 1)
	require.NoError(t, err)

	require.NoError(t, s.DB.Transaction(func(tx *gorm.DB) error { return Spend(tx, userID, listingID) }))
	err = s.DB.Transaction(func(tx *gorm.DB) error { return Spend(tx, userID, listingID) })
	assert.Equal(t, ErrInsufficientCredits, err)

	b, _ := s.Balance(context.Background(), userID)
	assert.Equal(t, 0, b.Credits)
	assert.Equal(t, 1, b.TotalSpent)

	txs, err := s.Transactions(context.Background(), userID)
	require.NoError(t, err)
	types := map[string]int{}
	for _, tr := range txs {
		types[tr.Type]++
	}
	assert.Equal(t, 1, types[domain.TxListingCredit])
	assert.Equal(t, 1, types[domain.TxAdminAdjustment])
}

func TestAddPack_CompletesPendingPurchase(t *testing.T) {
	s := setupCredits(t)
	ctx := context.Background()
	userID := uuid.New()

	pending, pack, err := s.RequestPack(ctx, userID, 10, "0700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), pack.Price)

	b, err := s.AddPack(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Credits)
	assert.Equal(t, 10, b.TotalEarned)

	var got domain.Transaction
	require.NoError(t, s.DB.First(&got, "id = ?", pending.ID).Error)
	assert.Equal(t, domain.TxCompleted, got.Status)
	var n int64
	s.DB.Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&n)
	assert.Equal(t, int64(1), n)

	// no pending left: a new completed line is written
	_, err = s.AddPack(ctx, userID, 3)
	require.NoError(t, err)
	s.DB.Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&n)
	assert.Equal(t, int64(2), n)
}

func TestInvalidPackAndAmount(t *testing.T) {
	s := setupCredits(t)
	_, err := s.AddPack(context.Background(), uuid.New(), 7)
	assert.Equal(t, ErrInvalidPack, err)
	_, _, err = s.RequestPack(context.Background(), uuid.New(), 0, "")
	assert.Equal(t, ErrInvalidPack, err)
	_, err = s.SetCredits(context.Background(), uuid.New(), -1)
	assert.Equal(t, ErrInvalidAmount, err)
}

func TestCompletePurchase(t *testing.T) {
	s := setupCredits(t)
	userID := uuid.New()
	pending, _, err := s.RequestPack(context.Background(), userID, 30, "")
	require.NoError(t, err)
	require.NoError(t, s.DB.Transaction(func(tx *gorm.DB) error { return CompletePurchase(tx, pending) }))
	b, _ := s.Balance(context.Background(), userID)
	assert.Equal(t, 30, b.Credits)
}
