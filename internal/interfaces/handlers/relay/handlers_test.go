package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"daloamarket-backend/internal/application/credits"
	"daloamarket-backend/internal/application/emails"
	relaysvc "daloamarket-backend/internal/application/relay"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/middleware"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubSender struct {
	sent []emails.Message
	err  error
}

func (s *stubSender) Send(ctx context.Context, msg emails.Message) (string, error) {
	s.sent = append(s.sent, msg)
	return "email_1", s.err
}

func setupRelayApp(t *testing.T) (*fiber.App, *gorm.DB, *stubSender) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Listing{}, &domain.Transaction{}, &domain.UserCredits{}))

	sender := &stubSender{}
	h := &Handlers{Service: &relaysvc.Service{
		DB:           db,
		Emails:       sender,
		Credits:      &credits.Service{DB: db},
		SupportEmail: "support@daloamarket.shop",
		ListingFee:   200,
	}}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			middleware.SetSessionUser(c, middleware.SessionUser{UserID: id, FullName: "T", Email: "t@test.ci", Role: "user"})
		}
		return c.Next()
	})
	app.All("/payments/listing-proof", PostOnly, h.ListingProof)
	app.All("/support/contact", PostOnly, h.Support)
	app.Post("/payments/credit-proof", h.CreditProof)
	return app, db, sender
}

func send(t *testing.T, app *fiber.App, method, path string, body interface{}, userID string) (int, map[string]interface{}) {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestListingProofRelay(t *testing.T) {
	app, db, sender := setupRelayApp(t)
	owner := domain.User{Email: "awa@test.ci", FullName: "Awa"}
	require.NoError(t, db.Create(&owner).Error)
	l := domain.Listing{UserID: owner.ID, Title: "Vélo", Description: "d", Price: 1000,
		Category: "sports", Condition: "good", District: "Lobia", Status: domain.ListingPending}
	require.NoError(t, db.Create(&l).Error)

	body := map[string]string{
		"listingId": l.ID.String(), "fullName": "Awa", "email": "awa@test.ci",
		"phone": "0700000000", "screenshotBase64": "data:image/png;base64,AAAA",
	}
	code, out := send(t, app, "POST", "/payments/listing-proof", body, "")
	require.Equal(t, 200, code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Preuve de paiement envoyée avec succès", out["message"])
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "AAAA", sender.sent[0].Attachments[0].ContentBase64)

	var n int64
	db.Model(&domain.Transaction{}).Where("listing_id = ? AND status = ?", l.ID, domain.TxPending).Count(&n)
	assert.Equal(t, int64(1), n)

	code, out = send(t, app, "POST", "/payments/listing-proof", map[string]string{"listingId": "x"}, "")
	assert.Equal(t, 400, code)
	assert.Equal(t, "Données manquantes", out["error"])

	sender.err = errors.New("provider down")
	code, out = send(t, app, "POST", "/payments/listing-proof", body, "")
	assert.Equal(t, 500, code)
	assert.Equal(t, "Erreur lors de l'envoi de la preuve de paiement", out["error"])
}

func TestRelayMethods(t *testing.T) {
	app, _, _ := setupRelayApp(t)
	resp, err := app.Test(httptest.NewRequest("OPTIONS", "/support/contact", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	code, out := send(t, app, "GET", "/payments/listing-proof", nil, "")
	assert.Equal(t, 405, code)
	assert.Equal(t, "Méthode non autorisée", out["error"])
}

func TestSupportRelay(t *testing.T) {
	app, _, sender := setupRelayApp(t)
	body := map[string]string{"name": "Yao", "email": "yao@test.ci", "subject": "Compte", "message": "Bonjour"}
	code, out := send(t, app, "POST", "/support/contact", body, "")
	require.Equal(t, 200, code)
	assert.Equal(t, true, out["success"])
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "[Contact Support] Compte", sender.sent[0].Subject)
	assert.Equal(t, "yao@test.ci", sender.sent[0].ReplyTo)

	code, out = send(t, app, "POST", "/support/contact", map[string]string{"name": "Yao"}, "")
	assert.Equal(t, 400, code)
	assert.Equal(t, "Champs manquants", out["error"])

	sender.err = errors.New("provider down")
	code, out = send(t, app, "POST", "/support/contact", body, "")
	assert.Equal(t, 500, code)
	assert.Equal(t, "Erreur lors de l'envoi du message", out["error"])
}

func TestCreditProofRelay(t *testing.T) {
	app, db, sender := setupRelayApp(t)
	u := domain.User{Email: "kone@test.ci", FullName: "Koné"}
	require.NoError(t, db.Create(&u).Error)

	code, _ := send(t, app, "POST", "/payments/credit-proof",
		map[string]interface{}{"pack_credits": 10, "phone": "0500000000", "screenshotBase64": "AAAA"}, u.ID.String())
	require.Equal(t, fiber.StatusCreated, code)
	require.Len(t, sender.sent, 1)

	var tx domain.Transaction
	require.NoError(t, db.Where("user_id = ?", u.ID).First(&tx).Error)
	assert.Equal(t, domain.TxCreditPurchase, tx.Type)
	assert.Equal(t, domain.TxPending, tx.Status)
	assert.Equal(t, int64(1500), tx.Amount)

	code, out := send(t, app, "POST", "/payments/credit-proof",
		map[string]interface{}{"pack_credits": 7, "phone": "0500000000", "screenshotBase64": "AAAA"}, u.ID.String())
	assert.Equal(t, 400, code)
	assert.Equal(t, "Pack de crédits invalide", out["error"].(map[string]interface{})["message"])
}
