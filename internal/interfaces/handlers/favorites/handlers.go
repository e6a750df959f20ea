package favorites

import (
	"errors"

	favsvc "daloamarket-backend/internal/application/favorites"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *favsvc.Service
}

// GET /api/v1/favorites
func (h *Handlers) List(c *fiber.Ctx) error {
	entries, err := h.Service.List(c.Context(), middleware.CurrentUserID(c))
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Favoris récupérés", entries, nil)
}

// POST /api/v1/favorites/:listing_id
func (h *Handlers) Add(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, favsvc.ErrListingNotFound.Error(), fiber.StatusNotFound, nil)
	}
	if err := h.Service.Add(c.Context(), middleware.CurrentUserID(c), id); err != nil {
		if errors.Is(err, favsvc.ErrListingNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Ajouté aux favoris", fiber.Map{"listing_id": id, "favorite": true}, nil)
}

// DELETE /api/v1/favorites/:listing_id
func (h *Handlers) Remove(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, favsvc.ErrListingNotFound.Error(), fiber.StatusNotFound, nil)
	}
	if err := h.Service.Remove(c.Context(), middleware.CurrentUserID(c), id); err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Retiré des favoris", fiber.Map{"listing_id": id, "favorite": false}, nil)
}
