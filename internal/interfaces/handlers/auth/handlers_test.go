package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	authsvc "daloamarket-backend/internal/application/auth"
	"daloamarket-backend/internal/application/emails"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSender struct{ sent []emails.Message }

func (f *fakeSender) Send(ctx context.Context, msg emails.Message) (string, error) {
	f.sent = append(f.sent, msg)
	return "id", nil
}

func setupAuthApp(t *testing.T) (*fiber.App, *redis.Client) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.UserCredits{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	h := &Handlers{
		Service: &authsvc.Service{DB: db, Rdb: rdb, Emails: &fakeSender{}},
		Rdb:     rdb,
	}
	app := fiber.New()
	app.Use(middleware.Session(rdb))
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)
	app.Post("/otp/request", h.RequestCode)
	app.Post("/otp/verify", h.VerifyCode)
	app.Get("/me", h.Me)
	app.Delete("/logout", h.Logout)
	return app, rdb
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func sessionCookie(resp *http.Response) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

func errorMessage(t *testing.T, resp *http.Response) string {
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out["error"].(map[string]interface{})["message"].(string)
}

var signup = map[string]string{
	"email": "awa@test.ci", "password": "motdepasse1", "full_name": "Awa Koné",
	"phone": "0700000000", "district": "Lobia",
}

func TestRegisterLoginMeLogout(t *testing.T) {
	app, rdb := setupAuthApp(t)
	ctx := context.Background()

	resp := postJSON(t, app, "/register", signup)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, sessionCookie(resp))

	resp = postJSON(t, app, "/register", signup)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Cet e-mail est déjà utilisé", errorMessage(t, resp))

	resp = postJSON(t, app, "/login", map[string]string{"email": "awa@test.ci", "password": "mauvais123"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Identifiants invalides", errorMessage(t, resp))

	resp = postJSON(t, app, "/login", map[string]string{"email": "awa@test.ci"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, app, "/login", map[string]string{"email": "AWA@test.ci", "password": "motdepasse1"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotEmpty(t, cookie)
	sid := cookie[2:]
	raw, err := rdb.Get(ctx, middleware.SessionRedisPrefix+sid).Result()
	require.NoError(t, err)
	assert.Contains(t, raw, "awa@test.ci")

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", middleware.SessionCookieName+"="+cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/logout", nil)
	req.Header.Set("Cookie", middleware.SessionCookieName+"="+cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	n, _ := rdb.Exists(ctx, middleware.SessionRedisPrefix+sid).Result()
	assert.Equal(t, int64(0), n)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", middleware.SessionCookieName+"="+cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Non authentifié", errorMessage(t, resp))
}

func TestRegister_Validation(t *testing.T) {
	app, _ := setupAuthApp(t)
	bad := map[string]string{}
	for k, v := range signup {
		bad[k] = v
	}
	bad["district"] = "Abidjan"
	resp := postJSON(t, app, "/register", bad)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Quartier invalide", errorMessage(t, resp))
}

func TestOTPErrors(t *testing.T) {
	app, _ := setupAuthApp(t)

	resp := postJSON(t, app, "/otp/request", map[string]string{"email": "personne@test.ci"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Aucun compte associé à cet e-mail", errorMessage(t, resp))

	resp = postJSON(t, app, "/register", signup)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp = postJSON(t, app, "/otp/request", map[string]string{"email": "awa@test.ci"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/otp/verify", map[string]string{"email": "awa@test.ci", "code": "000000"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Code invalide ou expiré", errorMessage(t, resp))
}
