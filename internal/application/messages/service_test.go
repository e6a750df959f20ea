package messages

import (
	"context"
	"strings"
	"testing"
	"time"

	"daloamarket-backend/internal/application/realtime"
	"daloamarket-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	s       *Service
	seller  domain.User
	buyer   domain.User
	buyer2  domain.User
	listing domain.Listing
	rdb     *redis.Client
}

func setupMessages(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Listing{}, &domain.Message{}))
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	f := &fixture{s: &Service{DB: db, Hub: &realtime.Hub{Rdb: rdb}}, rdb: rdb}
	f.seller = domain.User{Email: "seller@test.ci", FullName: "Awa"}
	f.buyer = domain.User{Email: "buyer@test.ci", FullName: "Yao"}
	f.buyer2 = domain.User{Email: "buyer2@test.ci", FullName: "Koffi"}
	for _, u := range []*domain.User{&f.seller, &f.buyer, &f.buyer2} {
		require.NoError(t, db.Create(u).Error)
	}
	f.listing = domain.Listing{UserID: f.seller.ID, Title: "Vélo", Description: "d", Price: 1000,
		Category: "sports", Condition: "good", District: "Lobia", Status: domain.ListingActive,
		Photos: domain.PhotoURLs{"https://cdn.test/velo.jpg"}}
	require.NoError(t, db.Create(&f.listing).Error)
	return f
}

func TestSend_Validation(t *testing.T) {
	f := setupMessages(t)
	ctx := context.Background()
	in := SendInput{ListingID: f.listing.ID, ReceiverID: f.seller.ID}

	in.Content = "   "
	_, err := f.s.Send(ctx, f.buyer.ID, in)
	assert.Equal(t, ErrEmpty, err)

	in.Content = strings.Repeat("é", 2001)
	_, err = f.s.Send(ctx, f.buyer.ID, in)
	assert.Equal(t, ErrTooLong, err)

	in.Content = "Bonjour"
	_, err = f.s.Send(ctx, f.seller.ID, in)
	assert.Equal(t, ErrSelfMessage, err)

	_, err = f.s.Send(ctx, f.buyer.ID, SendInput{ListingID: uuid.New(), ReceiverID: f.seller.ID, Content: "x"})
	assert.Equal(t, ErrListingNotFound, err)

	// neither party owns the listing
	_, err = f.s.Send(ctx, f.buyer.ID, SendInput{ListingID: f.listing.ID, ReceiverID: f.buyer2.ID, Content: "x"})
	assert.Equal(t, ErrInvalidReceiver, err)
}

func TestSend_PublishesToReceiver(t *testing.T) {
	f := setupMessages(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps, err := f.s.Hub.Subscribe(ctx, f.seller.ID)
	require.NoError(t, err)
	defer ps.Close()

	m, err := f.s.Send(ctx, f.buyer.ID, SendInput{ListingID: f.listing.ID, ReceiverID: f.seller.ID, Content: "  Toujours dispo ? "})
	require.NoError(t, err)
	assert.Equal(t, "Toujours dispo ?", m.Content)

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	ev, err := realtime.Decode(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, realtime.EventMessageCreated, ev.Type)
	assert.Contains(t, string(ev.Data), "Toujours dispo ?")
}

func TestConversationsThreadAndUnread(t *testing.T) {
	f := setupMessages(t)
	ctx := context.Background()
	send := func(from, to uuid.UUID, content string) {
		_, err := f.s.Send(ctx, from, SendInput{ListingID: f.listing.ID, ReceiverID: to, Content: content})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	send(f.buyer.ID, f.seller.ID, "Bonjour")
	send(f.seller.ID, f.buyer.ID, "Oui ?")
	send(f.buyer.ID, f.seller.ID, "Prix final ?")
	send(f.buyer2.ID, f.seller.ID, "Toujours là ?")

	n, err := f.s.UnreadCount(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	convs, err := f.s.Conversations(ctx, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, f.buyer2.ID, convs[0].OtherUserID)
	assert.Equal(t, "Koffi", convs[0].OtherUserName)
	assert.Equal(t, 1, convs[0].UnreadCount)
	assert.Equal(t, "Yao", convs[1].OtherUserName)
	assert.Equal(t, "Prix final ?", convs[1].LastMessage)
	assert.Equal(t, 2, convs[1].UnreadCount)
	assert.Equal(t, "Vélo", convs[1].ListingTitle)
	assert.Equal(t, "https://cdn.test/velo.jpg", convs[1].ListingPhoto)

	thread, err := f.s.Thread(ctx, f.seller.ID, f.listing.ID, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "Bonjour", thread[0].Content)
	assert.True(t, thread[0].Read)

	n, err = f.s.UnreadCount(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	updated, err := f.s.MarkRead(ctx, f.seller.ID, f.listing.ID, f.buyer2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
	updated, err = f.s.MarkRead(ctx, f.seller.ID, f.listing.ID, f.buyer2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)
}
