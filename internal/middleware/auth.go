package middleware

import (
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentUser(c); !ok {
			return response.Unauthorized(c, "")
		}
		return c.Next()
	}
}

// GetUser returns the raw session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentUser decodes the session user. ok is false without a valid user_id.
func CurrentUser(c *fiber.Ctx) (SessionUser, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return SessionUser{}, false
	}
	u := SessionUser{
		UserID:   str(m["user_id"]),
		FullName: str(m["full_name"]),
		Email:    str(m["email"]),
		Role:     str(m["role"]),
	}
	if _, err := uuid.Parse(u.UserID); err != nil {
		return SessionUser{}, false
	}
	return u, true
}

// CurrentUserID returns the session user id or uuid.Nil.
func CurrentUserID(c *fiber.Ctx) uuid.UUID {
	u, ok := CurrentUser(c)
	if !ok {
		return uuid.Nil
	}
	id, _ := uuid.Parse(u.UserID)
	return id
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
