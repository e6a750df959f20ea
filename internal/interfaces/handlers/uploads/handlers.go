package uploads

import (
	"errors"

	uploadsvc "daloamarket-backend/internal/application/uploads"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

// POST /api/v1/uploads/listing-photo
func (h *Handlers) ListingPhoto(c *fiber.Ctx) error {
	var req uploadsvc.PhotoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, uploadsvc.ErrFileNameRequired.Error(), fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.ListingPhoto(c.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, uploadsvc.ErrFileNameRequired), errors.Is(err, uploadsvc.ErrFileTooLarge),
			errors.Is(err, uploadsvc.ErrUnsupportedType):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		default:
			log.Error().Err(err).Str("bucket", h.Service.Bucket).Msg("upload: failed to generate signed URL")
			return response.Error(c, "Impossible de générer l'URL d'envoi", fiber.StatusInternalServerError, nil)
		}
	}
	return response.Success(c, "URL d'envoi générée", res, nil)
}
