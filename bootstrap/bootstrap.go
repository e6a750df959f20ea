package bootstrap

import (
	"daloamarket-backend/internal/config"
	"daloamarket-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for Vercel serverless (api handler imports this package, not internal).
// Cron jobs do not run here; the long-lived cmd/api process owns them.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, err := router.CreateApp(cfg)
	return app, err
}
