package middleware

import (
	"daloamarket-backend/internal/pkg/constants"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthorizePermission checks the session user's role against constants.PermissionRoles.
// Unconfigured permission -> 500; role not allowed -> 403.
func AuthorizePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return response.Unauthorized(c, "")
		}
		if user.Role == "" {
			return response.Error(c, "Erreur d'autorisation", fiber.StatusInternalServerError, nil)
		}
		roles, ok := constants.PermissionRoles[permission]
		if !ok || len(roles) == 0 {
			return response.Error(c, "Erreur de configuration des permissions", fiber.StatusInternalServerError, nil)
		}
		if !constants.AllowedRole(permission, user.Role) {
			return response.Forbidden(c, "")
		}
		return c.Next()
	}
}
