package reviews

import (
	"errors"

	reviewsvc "daloamarket-backend/internal/application/reviews"
	"daloamarket-backend/internal/middleware"
	"daloamarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *reviewsvc.Service
}

// POST /api/v1/reviews
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in reviewsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Requête invalide", fiber.StatusBadRequest, nil)
	}
	r, err := h.Service.Create(c.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		return reviewError(c, err)
	}
	return response.SuccessCreated(c, "Avis publié", r, nil)
}

// GET /api/v1/users/:id/reviews
func (h *Handlers) ForUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Utilisateur introuvable", fiber.StatusNotFound, nil)
	}
	views, err := h.Service.ForUser(c.Context(), id)
	if err != nil {
		return middleware.InternalError(c, err)
	}
	return response.Success(c, "Avis récupérés", views, reviewsvc.Summarize(views))
}

func reviewError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, reviewsvc.ErrInvalidRating), errors.Is(err, reviewsvc.ErrSelfReview),
		errors.Is(err, reviewsvc.ErrNotSellerListing), errors.Is(err, reviewsvc.ErrCommentTooLong):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, reviewsvc.ErrListingNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, reviewsvc.ErrAlreadyReviewed):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	default:
		return middleware.InternalError(c, err)
	}
}
