package messages

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	msgsvc "daloamarket-backend/internal/application/messages"
	"daloamarket-backend/internal/application/realtime"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	app     *fiber.App
	seller  domain.User
	buyer   domain.User
	listing domain.Listing
}

func setupMessagesApp(t *testing.T) *fixture {
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

	f := &fixture{
		seller: domain.User{Email: "seller@test.ci", FullName: "Awa"},
		buyer:  domain.User{Email: "buyer@test.ci", FullName: "Yao"},
	}
	require.NoError(t, db.Create(&f.seller).Error)
	require.NoError(t, db.Create(&f.buyer).Error)
	f.listing = domain.Listing{UserID: f.seller.ID, Title: "Vélo", Description: "Vélo de course", Price: 30000,
		Category: "sports", Condition: "good", District: "Lobia", Status: domain.ListingActive}
	require.NoError(t, db.Create(&f.listing).Error)

	hub := &realtime.Hub{Rdb: rdb}
	h := &Handlers{Service: &msgsvc.Service{DB: db, Hub: hub}, Hub: hub}
	limiter := middleware.NewRateLimiter(0.001, 2, "Trop de messages, réessayez dans un instant")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			middleware.SetSessionUser(c, middleware.SessionUser{UserID: id, FullName: "T", Email: "t@test.ci", Role: "user"})
		}
		return c.Next()
	})
	app.Post("/", limiter.Handler(), h.Send)
	app.Get("/conversations", h.Conversations)
	app.Get("/thread", h.Thread)
	app.Patch("/read", h.MarkRead)
	app.Get("/unread-count", h.UnreadCount)
	f.app = app
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, as uuid.UUID) (*http.Response, map[string]interface{}) {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Test-User", as.String())
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestSendAndRead(t *testing.T) {
	f := setupMessagesApp(t)
	send := map[string]interface{}{"listing_id": f.listing.ID, "receiver_id": f.seller.ID, "content": "  Toujours dispo ?  "}

	resp, out := f.do(t, "POST", "/", send, f.buyer.ID)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Toujours dispo ?", out["data"].(map[string]interface{})["content"])

	resp, out = f.do(t, "GET", "/unread-count", nil, f.seller.ID)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, float64(1), out["data"].(map[string]interface{})["count"])

	resp, out = f.do(t, "GET", "/conversations", nil, f.seller.ID)
	require.Equal(t, 200, resp.StatusCode)
	convs := out["data"].([]interface{})
	require.Len(t, convs, 1)
	assert.Equal(t, "Yao", convs[0].(map[string]interface{})["other_user_name"])

	resp, out = f.do(t, "PATCH", "/read", map[string]interface{}{"listing_id": f.listing.ID, "user_id": f.buyer.ID}, f.seller.ID)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, float64(1), out["data"].(map[string]interface{})["updated"])

	resp, out = f.do(t, "GET", "/thread?listing_id="+f.listing.ID.String()+"&user_id="+f.buyer.ID.String(), nil, f.seller.ID)
	require.Equal(t, 200, resp.StatusCode)
	assert.Len(t, out["data"].([]interface{}), 1)
}

func TestSend_Errors(t *testing.T) {
	f := setupMessagesApp(t)

	resp, out := f.do(t, "POST", "/", map[string]interface{}{"listing_id": f.listing.ID, "receiver_id": f.seller.ID, "content": "   "}, f.buyer.ID)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Le message ne peut pas être vide", out["error"].(map[string]interface{})["message"])

	resp, _ = f.do(t, "POST", "/", map[string]interface{}{"listing_id": uuid.New(), "receiver_id": f.seller.ID, "content": "Bonjour"}, f.buyer.ID)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, out = f.do(t, "POST", "/", map[string]interface{}{"listing_id": f.listing.ID, "receiver_id": f.seller.ID, "content": "Bonjour"}, f.buyer.ID)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Trop de messages, réessayez dans un instant", out["error"].(map[string]interface{})["message"])

	resp, _ = f.do(t, "GET", "/thread?listing_id=abc", nil, f.buyer.ID)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPump(t *testing.T) {
	events := make(chan *redis.Message, 3)
	beats := make(chan time.Time, 1)
	events <- &redis.Message{Payload: `{"type":"message.created","data":{"content":"Salut"}}`}
	events <- &redis.Message{Payload: `not json`}
	beats <- time.Now()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	done := make(chan error, 1)
	go func() { done <- pump(w, events, beats) }()

	require.Eventually(t, func() bool { return len(events) == 0 && len(beats) == 0 }, time.Second, 5*time.Millisecond)
	close(events)
	require.NoError(t, <-done)

	out := buf.String()
	assert.Contains(t, out, ": connected\n\n")
	assert.Contains(t, out, "event: message.created\ndata: {\"content\":\"Salut\"}\n\n")
	assert.NotContains(t, out, "not json")
}
