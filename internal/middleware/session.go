package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionConfig holds cookie flags for the Redis-backed session.
type SessionConfig struct {
	AllowCrossSiteDev bool
	IsProduction      bool
	CookieDomain      string
}

const (
	SessionCookieName  = "daloa.sid"
	SessionRedisPrefix = "session:"
	UserSessionsPrefix = "user_sessions:"
	sessionMaxAge      = 7 * 24 * time.Hour
)

// SessionUser is the shape stored in session under "user".
type SessionUser struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Session returns a Fiber middleware that loads/saves session data from Redis.
// Cookie value is "s:<id>"; Redis key is "session:<id>".
func Session(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		if strings.HasPrefix(sessionID, "s:") {
			parts := strings.SplitN(sessionID[2:], ".", 2)
			sessionID = parts[0]
		}

		var data map[string]interface{}
		if sessionID != "" {
			b, err := rdb.Get(context.Background(), SessionRedisPrefix+sessionID).Bytes()
			if err == nil {
				_ = json.Unmarshal(b, &data)
			}
		}
		if data == nil {
			// Unknown or expired id: drop it so a fresh one is issued on login.
			sessionID = ""
			data = make(map[string]interface{})
		}

		c.Locals("session_data", data)
		if u, ok := data["user"]; ok {
			c.Locals("user", u)
		} else {
			c.Locals("user", nil)
		}
		c.Locals("session_id", sessionID)

		err := c.Next()
		if err != nil {
			return err
		}

		if sid, _ := c.Locals("session_id").(string); sid != "" {
			updated, _ := c.Locals("session_data").(map[string]interface{})
			if len(updated) > 0 {
				b, _ := json.Marshal(updated)
				rdb.Set(context.Background(), SessionRedisPrefix+sid, b, sessionMaxAge)
			}
		}
		return nil
	}
}

// GetSessionID returns the current session ID from context (for login/logout).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals("session_id").(string)
	return sid
}

// SetSessionUser sets the user in the session and marks the session for save.
// Call RegenerateSessionID first on login.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	data, _ := c.Locals("session_data").(map[string]interface{})
	if data == nil {
		data = make(map[string]interface{})
	}
	data["user"] = map[string]interface{}{
		"user_id":   user.UserID,
		"full_name": user.FullName,
		"email":     user.Email,
		"role":      user.Role,
	}
	c.Locals("session_data", data)
	c.Locals("user", data["user"])
}

// RegenerateSessionID creates a new session ID and sets it in Locals (cookie set by handler).
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals("session_id", newID)
	return newID
}

// DestroySession clears user and session data from Locals; caller clears cookie and Redis.
func DestroySession(c *fiber.Ctx) {
	c.Locals("session_data", make(map[string]interface{}))
	c.Locals("user", nil)
	c.Locals("session_id", "")
}

// SessionCookieConfig returns the cookie options used for set and clear.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}
