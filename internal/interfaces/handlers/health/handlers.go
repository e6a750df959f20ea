package health

import (
	healthsvc "daloamarket-backend/internal/application/health"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const serviceName = "daloamarket-api"

// Handlers serves the status page, its JSON feed and the admin reset.
type Handlers struct {
	Service        *healthsvc.Service
	HealthAdminKey string
}

// Reset clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	if err := h.Service.Reset(c.Context()); err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Statistiques réinitialisées", fiber.Map{"success": true}, nil)
}

// JSON returns the service name, status, runtime, traffic and dependencies.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.Service.Collect(c.Context())
	return c.JSON(fiber.Map{
		"service":      serviceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors returns the last 50 server errors.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	entries, err := h.Service.ErrorLog(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	return c.JSON(entries)
}

// Dashboard renders the HTML status page.
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	html, err := healthsvc.RenderDashboard(h.Service.Collect(c.Context()))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}
