package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RouteLogger logs each request exit with status, duration, trace ID and user.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := GetTraceID(c)
		if traceID == "" {
			traceID = "no-trace-id"
		}
		start := time.Now()
		log.Debug().Str("trace_id", traceID).Str("method", c.Method()).Str("path", c.Path()).Msg("Entering request")
		err := c.Next()

		ev := log.Info()
		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			ev = log.Warn()
		}
		if u, ok := CurrentUser(c); ok {
			ev = ev.Str("user_id", u.UserID)
		}
		ev.Str("trace_id", traceID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Int64("ms", time.Since(start).Milliseconds()).
			Msg("Exiting request")
		return err
	}
}
