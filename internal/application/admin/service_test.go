package admin

import (
	"context"
	"sync"
	"testing"

	"daloamarket-backend/internal/application/credits"
	policies "daloamarket-backend/internal/application/policies/user"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAdmin(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Listing{}, &domain.Favorite{}, &domain.UserCredits{}, &domain.Transaction{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Service{DB: db, Rdb: rdb, Credits: &credits.Service{DB: db}}
}

func seedUser(t *testing.T, s *Service, name, email string) domain.User {
	u := domain.User{FullName: name, Email: email, Role: domain.RoleUser}
	require.NoError(t, s.DB.Create(&u).Error)
	return u
}

func seedListing(t *testing.T, s *Service, owner uuid.UUID, status string) domain.Listing {
	l := domain.Listing{
		UserID: owner, Title: "Téléphone Tecno", Description: "Très bon état, peu servi",
		Price: 45000, Category: "electronics", Condition: "good", District: "Lobia", Status: status,
	}
	require.NoError(t, s.DB.Create(&l).Error)
	return l
}

func TestUsers_Filter(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	awa := seedUser(t, s, "Awa Koné", "awa@test.ci")
	seedUser(t, s, "Yao Kouassi", "yao@test.ci")
	_, err := s.SetCredits(ctx, awa.ID, 4)
	require.NoError(t, err)

	rows, err := s.Users(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.Users(ctx, "AWA")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, awa.ID, rows[0].ID)
	assert.Equal(t, 4, rows[0].Credits)
}

func TestToggleBan_DestroysSessions(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	actor := seedUser(t, s, "Admin", "admin@test.ci")
	target := seedUser(t, s, "Awa Koné", "awa@test.ci")

	require.NoError(t, s.Rdb.Set(ctx, middleware.SessionRedisPrefix+"sid1", "{}", 0).Err())
	require.NoError(t, policies.TrackSession(ctx, s.Rdb, target.ID.String(), "sid1"))

	banned, err := s.ToggleBan(ctx, actor.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, banned)
	n, _ := s.Rdb.Exists(ctx, middleware.SessionRedisPrefix+"sid1").Result()
	assert.Equal(t, int64(0), n)

	banned, err = s.ToggleBan(ctx, actor.ID, target.ID)
	require.NoError(t, err)
	assert.False(t, banned)

	_, err = s.ToggleBan(ctx, actor.ID, actor.ID)
	assert.Equal(t, policies.ErrSelfAction, err)
	_, err = s.ToggleBan(ctx, actor.ID, uuid.New())
	assert.Equal(t, ErrUserNotFound, err)
}

func TestSetRole(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	actor := seedUser(t, s, "Admin", "admin@test.ci")
	target := seedUser(t, s, "Awa Koné", "awa@test.ci")

	u, err := s.SetRole(ctx, actor.ID, target.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = s.SetRole(ctx, actor.ID, target.ID, "superuser")
	assert.Equal(t, policies.ErrInvalidRole, err)
	_, err = s.SetRole(ctx, actor.ID, actor.ID, domain.RoleUser)
	assert.Equal(t, policies.ErrSelfAction, err)
}

func TestListingModeration(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	owner := seedUser(t, s, "Awa Koné", "awa@test.ci")
	pending := seedListing(t, s, owner.ID, domain.ListingPending)
	active := seedListing(t, s, owner.ID, domain.ListingActive)

	rows, err := s.Listings(ctx, domain.ListingPending)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, pending.ID, rows[0].ID)

	l, err := s.Approve(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingActive, l.Status)
	_, err = s.Approve(ctx, pending.ID)
	assert.Equal(t, ErrListingNotPending, err)

	l, err = s.Disable(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingDisabled, l.Status)

	l, err = s.MarkSold(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingSold, l.Status)

	require.NoError(t, s.DB.Create(&domain.Favorite{UserID: owner.ID, ListingID: active.ID}).Error)
	require.NoError(t, s.DeleteListing(ctx, active.ID))
	assert.Equal(t, ErrListingNotFound, s.DeleteListing(ctx, active.ID))
	var favs int64
	s.DB.Model(&domain.Favorite{}).Count(&favs)
	assert.Equal(t, int64(0), favs)
}

func TestValidateTransaction_ListingPayment(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	owner := seedUser(t, s, "Awa Koné", "awa@test.ci")
	l := seedListing(t, s, owner.ID, domain.ListingPending)
	tr := domain.Transaction{UserID: owner.ID, ListingID: &l.ID, Amount: 200, Type: domain.TxListingPayment, Status: domain.TxPending}
	require.NoError(t, s.DB.Create(&tr).Error)

	rows, err := s.Transactions(ctx, domain.TxPending, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Awa Koné", rows[0].UserName)
	assert.Equal(t, "Téléphone Tecno", rows[0].ListingTitle)

	out, err := s.ValidateTransaction(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, out.Status)

	var got domain.Listing
	require.NoError(t, s.DB.First(&got, "id = ?", l.ID).Error)
	assert.Equal(t, domain.ListingActive, got.Status)

	_, err = s.ValidateTransaction(ctx, tr.ID)
	assert.Equal(t, ErrAlreadyProcessed, err)
	_, err = s.RejectTransaction(ctx, uuid.New())
	assert.Equal(t, ErrTransactionNotFound, err)
}

func TestValidateTransaction_CreditPurchase(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	owner := seedUser(t, s, "Awa Koné", "awa@test.ci")
	tr, _, err := s.Credits.RequestPack(ctx, owner.ID, 10, "0700000000")
	require.NoError(t, err)

	_, err = s.ValidateTransaction(ctx, tr.ID)
	require.NoError(t, err)
	b, err := s.Credits.Balance(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Credits)

	balances, err := s.Balances(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "awa@test.ci", balances[0].Email)
	assert.Equal(t, 10, balances[0].TotalEarned)
}

func TestValidateTransaction_CreditsPackOnce(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	owner := seedUser(t, s, "Awa Koné", "awa@test.ci")
	tr, _, err := s.Credits.RequestPack(ctx, owner.ID, 10, "0700000000")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ValidateTransaction(ctx, tr.ID)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()
	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, ErrAlreadyProcessed, err)
	}
	assert.Equal(t, 1, ok)

	_, err = s.RejectTransaction(ctx, tr.ID)
	assert.Equal(t, ErrAlreadyProcessed, err)
	b, err := s.Credits.Balance(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Credits)
}

func TestValidateTransaction_AfterPackAdded(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	owner := seedUser(t, s, "Awa Koné", "awa@test.ci")
	tr, _, err := s.Credits.RequestPack(ctx, owner.ID, 10, "0700000000")
	require.NoError(t, err)

	_, err = s.Credits.AddPack(ctx, owner.ID, 10)
	require.NoError(t, err)
	_, err = s.ValidateTransaction(ctx, tr.ID)
	assert.Equal(t, ErrAlreadyProcessed, err)

	b, err := s.Credits.Balance(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Credits)
	var n int64
	s.DB.Model(&domain.Transaction{}).Where("user_id = ?", owner.ID).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestRejectTransaction(t *testing.T) {
	s := setupAdmin(t)
	ctx := context.Background()
	owner := seedUser(t, s, "Awa Koné", "awa@test.ci")
	tr, _, err := s.Credits.RequestPack(ctx, owner.ID, 3, "")
	require.NoError(t, err)

	out, err := s.RejectTransaction(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxRejected, out.Status)
	b, _ := s.Credits.Balance(ctx, owner.ID)
	assert.Equal(t, 0, b.Credits)

	rows, err := s.Transactions(ctx, "", domain.TxCreditPurchase)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].ListingTitle)
}
