package middleware

import (
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// InternalError logs err with the request trace id and sends the generic 500.
func InternalError(c *fiber.Ctx, err error) error {
	log.Error().Err(err).
		Str("trace_id", GetTraceID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return response.Internal(c)
}
